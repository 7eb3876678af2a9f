package roomclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/thereayou/score-rooms/internal/handlers/dto"
)

// SnapshotFetcher путь чтения снимка комнаты
type SnapshotFetcher interface {
	Snapshot(ctx context.Context, code string) (*dto.SnapshotResponse, error)
}

type Config struct {
	RoomCode string
	RoomID   uuid.UUID
	// MemberID пустой для наблюдателя
	MemberID uuid.UUID
	// JustJoined объявляет участника комнате при первом подключении
	JustJoined bool

	ActivityCapacity int
	InitialBackoff   time.Duration
	MaxBackoff       time.Duration
}

// View то, что видит пользователь
type View struct {
	State State
	// Room nil до первого снимка, если в кэше ничего нет
	Room              *dto.SnapshotResponse
	Activity          []Activity
	NeedsRevalidation bool
}

// Reconciler держит вид комнаты согласованным со снимком сервера.
// Полный снимок перечитывается при каждом подключении и на каждое событие;
// события никогда не применяются к балансам напрямую.
type Reconciler struct {
	cfg       Config
	api       SnapshotFetcher
	dialer    Dialer
	cache     Cache
	sessionID uuid.UUID
	activity  *RecentActivity
	backoff   *backoff.ExponentialBackOff
	log       *logrus.Entry

	mu                sync.RWMutex
	state             State
	room              *dto.SnapshotResponse
	needsRevalidation bool
	onChange          func(View)
}

func NewReconciler(cfg Config, api SnapshotFetcher, dialer Dialer, cache Cache, policy CachePolicy) *Reconciler {
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = 500 * time.Millisecond
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 30 * time.Second
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = cfg.InitialBackoff
	b.MaxInterval = cfg.MaxBackoff

	r := &Reconciler{
		cfg:       cfg,
		api:       api,
		dialer:    dialer,
		cache:     cache,
		sessionID: uuid.New(),
		activity:  NewRecentActivity(cfg.ActivityCapacity),
		backoff:   b,
		log:       logrus.WithField("room_code", cfg.RoomCode),
		state:     StateDisconnected,
	}
	r.restore(policy)
	return r
}

// restore берет из кэша заготовку вида той же комнаты до первого снимка
func (r *Reconciler) restore(policy CachePolicy) {
	if r.cache == nil {
		return
	}
	cached, err := policy.Read(r.cache)
	if err != nil {
		r.log.WithError(err).Warn("Session cache read failed")
		return
	}
	if cached == nil || !strings.EqualFold(cached.Entry.Room.Code, r.cfg.RoomCode) {
		return
	}
	r.sessionID = cached.Entry.SessionID
	r.room = &dto.SnapshotResponse{RoomResponse: cached.Entry.Room}
	r.needsRevalidation = cached.NeedsRevalidation
}

// OnChange вызывается после каждой смены состояния или вида
func (r *Reconciler) OnChange(fn func(View)) {
	r.mu.Lock()
	r.onChange = fn
	r.mu.Unlock()
}

func (r *Reconciler) State() State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state
}

// CanConfirm можно ли подтверждать переводы: только при живом канале
func (r *Reconciler) CanConfirm() bool {
	return r.State() == StateSynced
}

func (r *Reconciler) View() View {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return View{
		State:             r.state,
		Room:              r.room,
		Activity:          r.activity.Items(),
		NeedsRevalidation: r.needsRevalidation,
	}
}

// Run держит комнату синхронной до отмены ctx или потери комнаты.
// Возвращает ErrRoomGone, если комната удалена или закрыта, и
// ErrStaleSession, если сервер не признает участника членом комнаты.
func (r *Reconciler) Run(ctx context.Context) error {
	justJoined := r.cfg.JustJoined
	for {
		r.setState(StateConnecting)
		dialed, err := r.session(ctx, justJoined)
		if dialed {
			justJoined = false
		}
		if terminal(err) {
			return r.abandon(err)
		}
		if ctx.Err() != nil {
			r.setState(StateDisconnected)
			return ctx.Err()
		}

		r.log.WithError(err).Warn("Room channel lost")
		r.setState(StateDisconnected)

		if err := r.waitReconnect(ctx); err != nil {
			if errors.Is(err, ErrRoomGone) {
				return r.abandon(err)
			}
			return err
		}
	}
}

// session одно подключение: вход в комнату, снимок, цикл событий
func (r *Reconciler) session(ctx context.Context, justJoined bool) (bool, error) {
	ch, err := r.dialer.Dial(ctx, r.cfg.RoomID, r.cfg.MemberID, justJoined)
	if err != nil {
		return false, err
	}
	defer ch.Close()

	if err := r.sync(ctx); err != nil {
		return true, err
	}
	r.backoff.Reset()
	r.setState(StateSynced)

	for {
		ev, err := ch.Next(ctx)
		if err != nil {
			return true, err
		}

		switch ev.Type {
		case typeScoreUpdated:
			var p dto.ScoreUpdatePayload
			if err := json.Unmarshal(ev.Data, &p); err == nil {
				r.activity.Push(activityFromUpdate(p))
				r.notify()
			}
		case typeUserJoined:
		default:
			continue
		}

		if err := r.refresh(ctx); err != nil {
			if errors.Is(err, ErrRoomGone) {
				return true, err
			}
			r.log.WithError(err).Warn("Snapshot refresh failed")
		}
	}
}

// sync перезаписывает вид снимком; список активности строится заново
func (r *Reconciler) sync(ctx context.Context) error {
	snap, err := r.fetch(ctx)
	if err != nil {
		return err
	}
	r.activity.Reset(snap.Transactions)
	r.apply(snap)
	return nil
}

func (r *Reconciler) refresh(ctx context.Context) error {
	snap, err := r.fetch(ctx)
	if err != nil {
		return err
	}
	r.apply(snap)
	return nil
}

func (r *Reconciler) fetch(ctx context.Context) (*dto.SnapshotResponse, error) {
	snap, err := r.api.Snapshot(ctx, r.cfg.RoomCode)
	if err != nil {
		return nil, err
	}
	if !snap.IsActive {
		return nil, fmt.Errorf("%w: %s is closed", ErrRoomGone, snap.Code)
	}
	return snap, nil
}

func (r *Reconciler) apply(snap *dto.SnapshotResponse) {
	r.mu.Lock()
	r.room = snap
	r.needsRevalidation = false
	r.mu.Unlock()

	if r.cache != nil {
		entry := &CacheEntry{
			Room:       snap.RoomResponse,
			SessionID:  r.sessionID,
			CapturedAt: time.Now().UTC(),
		}
		for _, m := range snap.Members {
			if m.ID == r.cfg.MemberID {
				entry.Member = m
			}
		}
		if err := r.cache.Save(entry); err != nil {
			r.log.WithError(err).Warn("Session cache write failed")
		}
	}
	r.notify()
}

// waitReconnect ждет следующую попытку и тем временем опрашивает снимок
func (r *Reconciler) waitReconnect(ctx context.Context) error {
	delay := r.backoff.NextBackOff()
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		r.setState(StateDisconnected)
		return ctx.Err()
	case <-timer.C:
	}

	if err := r.refresh(ctx); err != nil {
		if errors.Is(err, ErrRoomGone) {
			return err
		}
		r.log.WithError(err).Debug("Snapshot poll failed")
	}
	return nil
}

func terminal(err error) bool {
	return errors.Is(err, ErrRoomGone) || errors.Is(err, ErrStaleSession)
}

func (r *Reconciler) abandon(cause error) error {
	if r.cache != nil {
		if err := r.cache.Clear(); err != nil {
			r.log.WithError(err).Warn("Session cache clear failed")
		}
	}
	r.mu.Lock()
	r.room = nil
	r.needsRevalidation = false
	r.mu.Unlock()

	r.log.WithError(cause).Info("Room abandoned")
	r.setState(StateAbandoned)
	return cause
}

func (r *Reconciler) setState(s State) {
	r.mu.Lock()
	changed := r.state != s
	r.state = s
	r.mu.Unlock()
	if changed {
		r.notify()
	}
}

func (r *Reconciler) notify() {
	r.mu.RLock()
	fn := r.onChange
	r.mu.RUnlock()
	if fn != nil {
		fn(r.View())
	}
}
