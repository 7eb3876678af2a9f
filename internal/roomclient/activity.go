package roomclient

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/thereayou/score-rooms/internal/handlers/dto"
)

const DefaultActivityCapacity = 10

type Activity struct {
	TransactionID uuid.UUID
	From          string
	To            string
	Amount        int64
	Description   string
	Timestamp     time.Time
}

// RecentActivity последние переводы, новые первыми. Старые вытесняются.
type RecentActivity struct {
	mu       sync.RWMutex
	items    []Activity
	capacity int
}

func NewRecentActivity(capacity int) *RecentActivity {
	if capacity <= 0 {
		capacity = DefaultActivityCapacity
	}
	return &RecentActivity{capacity: capacity}
}

// Push добавляет перевод в начало. Уже известный перевод не дублируется.
func (r *RecentActivity) Push(a Activity) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, it := range r.items {
		if a.TransactionID != uuid.Nil && it.TransactionID == a.TransactionID {
			return
		}
	}
	r.items = append([]Activity{a}, r.items...)
	if len(r.items) > r.capacity {
		r.items = r.items[:r.capacity]
	}
}

// Reset заменяет список журналом из снимка (новые первыми)
func (r *RecentActivity) Reset(log []dto.TransactionEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := len(log)
	if n > r.capacity {
		n = r.capacity
	}
	r.items = make([]Activity, 0, n)
	for _, tx := range log[:n] {
		r.items = append(r.items, Activity{
			TransactionID: tx.ID,
			From:          tx.FromMember.Name,
			To:            tx.ToMember.Name,
			Amount:        tx.Amount,
			Description:   tx.Description,
			Timestamp:     tx.Timestamp,
		})
	}
}

func (r *RecentActivity) Items() []Activity {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Activity(nil), r.items...)
}

func activityFromUpdate(p dto.ScoreUpdatePayload) Activity {
	return Activity{
		TransactionID: p.TransactionID,
		From:          p.FromMember.Name,
		To:            p.ToMember.Name,
		Amount:        p.Amount,
		Description:   p.Description,
		Timestamp:     p.Timestamp,
	}
}
