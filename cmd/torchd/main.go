package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/AaronLay10/TorchBridge/internal/api"
	"github.com/AaronLay10/TorchBridge/internal/config"
	"github.com/AaronLay10/TorchBridge/internal/crossing"
	"github.com/AaronLay10/TorchBridge/internal/events"
	"github.com/AaronLay10/TorchBridge/internal/mqtt"
	"github.com/AaronLay10/TorchBridge/internal/storage/postgres"
	"github.com/AaronLay10/TorchBridge/internal/version"
)

// EnvMQTTPrefix names the broker credentials (TORCH_MQTT_USER, TORCH_MQTT_PASS).
const EnvMQTTPrefix = "TORCH_MQTT"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log.Fatalf("torchd: %v", err)
	}
}

func run(ctx context.Context) error {
	logged := logEvents(os.Stdout)

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load puzzle config: %w", err)
	}

	// The journal is optional; PGHOST turns it on.
	if os.Getenv("PGHOST") != "" {
		client, err := postgres.New(cfg.Puzzle.ID)
		if err != nil {
			log.Printf("journal unavailable: %v\n", err)
			api.SetPostgresStatus(false, false)
		} else {
			defer client.Close()
			events.SetPostgresClient(client)
			api.SetPostgresStatus(true, false)
		}
	}

	opts, err := crossing.OptionsFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("invalid roster: %w", err)
	}
	sess, err := crossing.NewSession(opts)
	if err != nil {
		return err
	}

	if err := api.InitAuth(); err != nil {
		return fmt.Errorf("failed to resolve api credentials: %w", err)
	}
	if api.IsAuthEnabled() {
		log.Println("API authentication enabled")
	}
	api.InitTLS()
	srv := api.NewServer(sess)

	hostname, _ := os.Hostname()
	events.Emit("info", "system.startup", "torchd starting", map[string]interface{}{
		"service":    "torchd",
		"version":    version.Version,
		"hostname":   hostname,
		"pid":        os.Getpid(),
		"puzzle_id":  cfg.Puzzle.ID,
		"session_id": sess.ID(),
	})

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		api.RunMetrics(ctx)
		return nil
	})
	g.Go(func() error {
		return srv.ListenAndServe(ctx, cfg.UIPort())
	})

	if cfg.MQTT.URL != "" || os.Getenv(mqtt.EnvBrokerURL) != "" {
		bridge, client, err := newBridge(cfg, sess)
		if err != nil {
			return err
		}
		g.Go(func() error {
			defer client.Disconnect()
			return bridge.Run(ctx)
		})
	}

	api.SetSessionReady(true)
	err = g.Wait()
	api.SetSessionReady(false)

	events.Emit("info", "system.shutdown", "torchd stopping", map[string]interface{}{
		"session_id": sess.ID(),
	})
	events.CloseAllSubscribers()
	<-logged
	return err
}

// logEvents writes every event as a JSON line until the subscribers are closed.
func logEvents(w io.Writer) <-chan struct{} {
	sub := events.Subscribe()
	done := make(chan struct{})
	go func() {
		defer close(done)
		enc := json.NewEncoder(w)
		for e := range sub {
			_ = enc.Encode(e)
		}
	}()
	return done
}

// newBridge connects to the broker. A broker that is down at startup is not
// fatal: paho keeps retrying and the bridge subscribes once it is up.
func newBridge(cfg *config.PuzzleConfig, sess *crossing.Session) (*mqtt.Bridge, *mqtt.Client, error) {
	creds, err := config.ResolveCredentials(EnvMQTTPrefix)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to resolve mqtt credentials: %w", err)
	}

	clientID := cfg.MQTT.ClientID
	if clientID == "" {
		clientID = "torchd-" + sess.ID()[:8]
	}

	api.SetMQTTStatus(false, true)
	client := mqtt.NewClient(mqtt.Options{
		URL:              cfg.MQTT.URL,
		ClientID:         clientID,
		Username:         creds.User,
		Password:         creds.Pass,
		OnConnect:        func() { api.SetMQTTStatus(true, true) },
		OnConnectionLost: func(error) { api.SetMQTTStatus(false, true) },
	})
	if err := client.Connect(); err != nil {
		log.Printf("mqtt %s: %v (retrying in background)\n", client.URL(), err)
	} else {
		log.Printf("MQTT connected to %s, room %s\n", client.URL(), cfg.Room())
	}
	return mqtt.NewBridge(client, cfg.Room(), sess), client, nil
}
