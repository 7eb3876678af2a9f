// Command roomwatch входит в комнату и держит в терминале согласованный вид
// балансов и последних переводов.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/thereayou/score-rooms/internal/roomclient"
)

func main() {
	server := flag.String("server", "http://localhost:8080", "server base URL")
	code := flag.String("room", "", "room code to join")
	name := flag.String("name", "", "display name in the room")
	create := flag.String("create", "", "create a room with this name instead of joining")
	cacheDir := flag.String("cache", defaultCacheDir(), "session cache directory")
	heartbeat := flag.Duration("heartbeat", roomclient.DefaultHeartbeatTimeout, "read silence before the channel counts as lost")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	api := roomclient.NewAPI(*server, nil)
	cache := roomclient.NewFileCache(*cacheDir)

	cfg, err := enter(ctx, api, cache, *code, *name, *create)
	if err != nil {
		logrus.Fatalf("Enter room: %v", err)
	}

	rec := roomclient.NewReconciler(cfg, api, &roomclient.WSDialer{
		URL:              wsURL(*server),
		HeartbeatTimeout: *heartbeat,
	}, cache, roomclient.DefaultCachePolicy())
	rec.OnChange(render)

	if err := rec.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		if errors.Is(err, roomclient.ErrRoomGone) {
			fmt.Println("Room is gone. Create or join another one.")
			os.Exit(2)
		}
		if errors.Is(err, roomclient.ErrStaleSession) {
			fmt.Println("Saved session does not belong to this room. Join again with -name.")
			os.Exit(2)
		}
		logrus.Fatalf("Run: %v", err)
	}
}

// enter создает комнату, входит в нее или берет свежую сессию из кэша
func enter(ctx context.Context, api *roomclient.API, cache roomclient.Cache, code, name, create string) (roomclient.Config, error) {
	switch {
	case create != "":
		if name == "" {
			return roomclient.Config{}, errors.New("-name is required")
		}
		res, err := api.CreateRoom(ctx, create, name)
		if err != nil {
			return roomclient.Config{}, err
		}
		fmt.Printf("Room %s created, share code %s\n", res.Room.Name, res.Room.Code)
		return roomclient.Config{RoomCode: res.Room.Code, RoomID: res.Room.ID, MemberID: res.Member.ID, JustJoined: true}, nil

	case code != "":
		if name == "" {
			return roomclient.Config{}, errors.New("-name is required")
		}
		res, err := api.JoinRoom(ctx, code, name)
		if err != nil {
			return roomclient.Config{}, err
		}
		return roomclient.Config{RoomCode: res.Room.Code, RoomID: res.Room.ID, MemberID: res.Member.ID, JustJoined: res.JustJoined}, nil
	}

	cached, err := roomclient.DefaultCachePolicy().Read(cache)
	if err != nil {
		return roomclient.Config{}, err
	}
	if cached == nil {
		return roomclient.Config{}, errors.New("no recent session, use -room or -create")
	}
	return roomclient.Config{
		RoomCode: cached.Entry.Room.Code,
		RoomID:   cached.Entry.Room.ID,
		MemberID: cached.Entry.Member.ID,
	}, nil
}

func render(v roomclient.View) {
	var b strings.Builder
	fmt.Fprintf(&b, "\n[%s]", v.State)
	if v.State != roomclient.StateSynced {
		b.WriteString(" confirm disabled")
	}
	if v.NeedsRevalidation {
		b.WriteString(" (cached, revalidating)")
	}
	b.WriteString("\n")

	if v.Room != nil {
		fmt.Fprintf(&b, "%s  %s\n", v.Room.Code, v.Room.Name)
		for _, m := range v.Room.Members {
			fmt.Fprintf(&b, "  %-20s %6d\n", m.Name, m.Balance)
		}
	}
	if len(v.Activity) > 0 {
		b.WriteString("Recent:\n")
		for _, a := range v.Activity {
			fmt.Fprintf(&b, "  %s  %s\n", a.Timestamp.Local().Format(time.Kitchen), a.Description)
		}
	}
	fmt.Print(b.String())
}

func wsURL(base string) string {
	base = strings.TrimRight(base, "/")
	switch {
	case strings.HasPrefix(base, "https://"):
		return "wss://" + strings.TrimPrefix(base, "https://") + "/ws"
	case strings.HasPrefix(base, "http://"):
		return "ws://" + strings.TrimPrefix(base, "http://") + "/ws"
	default:
		return base + "/ws"
	}
}

func defaultCacheDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "roomwatch")
	}
	return filepath.Join(os.TempDir(), "roomwatch")
}
