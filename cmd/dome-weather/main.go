// Command dome-weather polls an AAG CloudWatcher, decides whether the sky is
// safe for an open dome, drives the rain sensor heater and publishes the
// result to MQTT, a GPIO interlock and the local stores.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/sweeney/dome-weather/internal/aag"
	"github.com/sweeney/dome-weather/internal/config"
	"github.com/sweeney/dome-weather/internal/gpio"
	"github.com/sweeney/dome-weather/internal/heater"
	"github.com/sweeney/dome-weather/internal/metrics"
	"github.com/sweeney/dome-weather/internal/mqtt"
	"github.com/sweeney/dome-weather/internal/port"
	"github.com/sweeney/dome-weather/internal/station"
	"github.com/sweeney/dome-weather/internal/status"
	"github.com/sweeney/dome-weather/internal/store"
	"github.com/sweeney/dome-weather/internal/weather"
	"github.com/sweeney/dome-weather/internal/web"
)

type options struct {
	serial       string
	baud         int
	configPath   string
	poll         time.Duration
	heartbeat    time.Duration
	broker       string
	mqttUser     string
	mqttPassword string
	httpAddr     string
	gpioChip     string
	gpioPin      int
	sqlitePath   string
	retain       time.Duration
	redisAddr    string
	redisPass    string
	redisDB      int
	redisTTL     time.Duration
	logLevel     string
	query        string
	printReading bool
}

func main() {
	var o options
	flag.StringVar(&o.serial, "serial", "/dev/ttyUSB0", "Serial device of the cloud sensor")
	flag.IntVar(&o.baud, "baud", port.DefaultBaudRate, "Serial baud rate")
	flag.StringVar(&o.configPath, "config", "", "YAML config file (thresholds, categories, heater)")
	flag.DurationVar(&o.poll, "poll", 30*time.Second, "Sensor polling interval")
	flag.DurationVar(&o.heartbeat, "heartbeat", 15*time.Minute, "Heartbeat interval (0 to disable)")
	flag.StringVar(&o.broker, "broker", "tcp://192.168.1.200:1883", "MQTT broker address")
	flag.StringVar(&o.mqttUser, "mqtt-user", "", "MQTT username")
	flag.StringVar(&o.mqttPassword, "mqtt-password", "", "MQTT password")
	flag.StringVar(&o.httpAddr, "http", ":80", "HTTP status address (empty to disable)")
	flag.StringVar(&o.gpioChip, "gpio-chip", gpio.DefaultChip, "GPIO chip of the roof interlock")
	flag.IntVar(&o.gpioPin, "gpio-pin", gpio.DefaultPin, "BCM pin of the roof interlock (-1 to disable)")
	flag.StringVar(&o.sqlitePath, "sqlite", "", "SQLite history database (empty to disable)")
	flag.DurationVar(&o.retain, "retain", 30*24*time.Hour, "SQLite history retention (0 keeps everything)")
	flag.StringVar(&o.redisAddr, "redis", "", "Redis address for the latest-record cache (empty to disable)")
	flag.StringVar(&o.redisPass, "redis-password", "", "Redis password")
	flag.IntVar(&o.redisDB, "redis-db", 0, "Redis database")
	flag.DurationVar(&o.redisTTL, "redis-ttl", store.DefaultRedisTTL, "Expiry of the cached record")
	flag.StringVar(&o.logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	flag.StringVar(&o.query, "query", "", `Send one raw command (e.g. "!S") and print the response groups`)
	flag.BoolVar(&o.printReading, "print-reading", false, "Capture and classify one reading, print it and exit")

	flag.Parse()

	level, err := parseLevel(o.logLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	if err := run(o); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func parseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return 0, fmt.Errorf("invalid log level %q", s)
	}
	return l, nil
}

func run(o options) error {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return err
	}

	p, err := port.Open(o.serial, o.baud)
	if err != nil {
		return fmt.Errorf("init serial: %w", err)
	}
	client := aag.NewClient(p)
	defer client.Close()

	if o.query != "" {
		groups := client.Raw(o.query, aag.DefaultMaxAttempts)
		if groups == nil {
			return fmt.Errorf("no valid response to %q", o.query)
		}
		for _, g := range groups {
			fmt.Println(g)
		}
		return nil
	}

	device := aag.NewDevice(client, cfg.Samples)
	id := device.Identify()

	ctrl := heater.NewController(cfg.Heater, device)
	st := station.New(device, weather.NewEngine(cfg.Thresholds, cfg.Categories),
		weather.NewHistory(cfg.HistorySize), ctrl, station.Options{
			SafetyDelay:  cfg.SafetyDelay,
			ImpulseCycle: cfg.Heater.ImpulseCycle,
		})

	if o.printReading {
		rec := st.Classify(device.Capture(time.Now()))
		out, err := json.MarshalIndent(weather.NewPayload(rec), "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	}

	ctx := context.Background()

	var sinks []store.Sink
	var archive *store.SQLiteStore
	if o.sqlitePath != "" {
		archive, err = store.OpenSQLite(ctx, o.sqlitePath)
		if err != nil {
			return fmt.Errorf("init sqlite: %w", err)
		}
		sinks = append(sinks, archive)
	}
	if o.redisAddr != "" {
		cache, err := store.NewRedisCache(ctx, o.redisAddr, o.redisPass, o.redisDB, o.redisTTL)
		if err != nil {
			// The cache is optional; other processes fall back to MQTT.
			slog.Warn("redis: disabled", "addr", o.redisAddr, "error", err)
		} else {
			sinks = append(sinks, cache)
		}
	}
	fanout := store.NewFanout(store.DefaultSaveTimeout, sinks...)
	defer fanout.Close()

	var interlock gpio.Interlock
	if o.gpioPin >= 0 {
		il, err := gpio.NewRealInterlock(o.gpioChip, o.gpioPin)
		if err != nil {
			return fmt.Errorf("init gpio: %w", err)
		}
		interlock = il
		defer il.Close()
	}

	publisher, err := mqtt.NewRealPublisher(mqtt.Options{
		Broker:   o.broker,
		Username: o.mqttUser,
		Password: o.mqttPassword,
	})
	if err != nil {
		return fmt.Errorf("init mqtt: %w", err)
	}
	defer publisher.Close()

	tracker := status.NewTracker(time.Now(), status.Config{
		PollMs:        o.poll.Milliseconds(),
		HeartbeatMs:   o.heartbeat.Milliseconds(),
		SafetyDelayMs: cfg.SafetyDelay.Milliseconds(),
		Broker:        o.broker,
		HTTPPort:      o.httpAddr,
	})
	tracker.SetDevice(status.Device{
		Name:     id.Name,
		Firmware: id.Firmware,
		Serial:   id.Serial,
		Port:     o.serial,
	})

	snap := tracker.Snapshot()
	startup := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := publisher.PublishSystem(startup); err != nil {
		slog.Warn("mqtt: startup event failed", "error", err)
	} else {
		slog.Info("mqtt: published startup event")
	}

	if o.httpAddr != "" {
		srv := web.New(o.httpAddr, tracker, st.History())
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("http: server error", "error", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		slog.Info("http: status server listening", "addr", o.httpAddr)
	}

	slog.Info("started", "device", id.Name, "firmware", id.Firmware, "poll", o.poll,
		"safety_delay", cfg.SafetyDelay, "broker", o.broker, "heartbeat", o.heartbeat, "sinks", fanout.Len())

	ticker := time.NewTicker(o.poll)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	l := loop{
		station:    st,
		publisher:  publisher,
		mqttStatus: publisher,
		tracker:    tracker,
		sinks:      fanout,
		interlock:  interlock,
		heartbeat:  o.heartbeat,
	}
	if archive != nil && o.retain > 0 {
		l.archive = archive
		l.retain = o.retain
	}
	return l.run(time.Now, ticker.C, sigCh)
}

// pruner drops archived records older than a cutoff.
type pruner interface {
	Prune(ctx context.Context, before time.Time) (int64, error)
}

// loop is the poll loop and its outputs. Optional outputs are nil.
type loop struct {
	station    *station.Station
	publisher  mqtt.Publisher
	mqttStatus mqtt.ConnectionStatus
	tracker    *status.Tracker
	sinks      *store.Fanout
	interlock  gpio.Interlock
	heartbeat  time.Duration
	archive    pruner
	retain     time.Duration
}

func (l loop) run(now func() time.Time, tick <-chan time.Time, sig <-chan os.Signal) error {
	lastHeartbeat := now()

	for {
		select {
		case s := <-sig:
			slog.Info("shutting down", "signal", s)
			signalName := "UNKNOWN"
			if s == syscall.SIGINT {
				signalName = "SIGINT"
			} else if s == syscall.SIGTERM {
				signalName = "SIGTERM"
			}
			// The roof must not stay cleared once nobody is watching.
			l.setInterlock(false)

			event := mqtt.SystemEvent{
				Timestamp: now(),
				Event:     "SHUTDOWN",
				Reason:    signalName,
				Retained:  true,
			}
			if l.tracker != nil {
				l.refreshMQTT()
				event.RawPayload = status.FormatStatusEvent(l.tracker.Snapshot(), "SHUTDOWN", signalName)
			}
			if err := l.publisher.PublishSystem(event); err != nil {
				slog.Warn("mqtt: shutdown event failed", "error", err)
			} else {
				slog.Info("mqtt: published shutdown event")
			}
			return nil

		case <-tick:
			t := now()
			rec := l.station.Cycle(t)
			l.deliver(rec)

			if l.heartbeat > 0 && t.Sub(lastHeartbeat) >= l.heartbeat {
				lastHeartbeat = t
				l.beat(t)
			}
		}
	}
}

// deliver hands one record to every output. No output failure stops the loop.
func (l loop) deliver(rec weather.Record) {
	safe := rec.Verdict.Safe
	slog.Info("cycle", "id", rec.ID, "safe", safe, "fields", len(rec.Reading.Values))
	for _, c := range rec.Verdict.Conditions {
		slog.Debug("condition", "kind", c.Kind, "label", c.Label, "safe", c.Safe)
	}

	l.setInterlock(safe)
	metrics.ObserveRecord(rec)

	if err := l.publisher.Publish(rec); err != nil {
		metrics.SinkErrors.WithLabelValues("mqtt").Inc()
		slog.Warn("mqtt: publish failed", "id", rec.ID, "error", err)
	}
	if l.sinks != nil {
		l.sinks.Save(context.Background(), rec)
	}
	if l.tracker != nil {
		l.tracker.Record(rec, l.station.HeaterState())
		l.refreshMQTT()
	}
}

func (l loop) setInterlock(safe bool) {
	if l.interlock == nil {
		return
	}
	if err := l.interlock.Set(safe); err != nil {
		metrics.SinkErrors.WithLabelValues("gpio").Inc()
		slog.Error("gpio: interlock write failed", "safe", safe, "error", err)
		if safe {
			_ = l.interlock.Set(false)
		}
	}
}

func (l loop) beat(t time.Time) {
	event := mqtt.SystemEvent{
		Timestamp: t,
		Event:     "HEARTBEAT",
	}
	if l.tracker != nil {
		l.refreshMQTT()
		snap := l.tracker.Snapshot()
		slog.Info("heartbeat", "uptime", snap.Uptime().Round(time.Second), "cycles", snap.Cycles, "safe", snap.Safe())
		event.RawPayload = status.FormatStatusEvent(snap, "HEARTBEAT", "")
	}
	if err := l.publisher.PublishSystem(event); err != nil {
		slog.Warn("mqtt: heartbeat failed", "error", err)
	}

	if l.archive != nil {
		n, err := l.archive.Prune(context.Background(), t.Add(-l.retain))
		if err != nil {
			slog.Warn("store: prune failed", "error", err)
		} else if n > 0 {
			slog.Info("store: pruned", "records", n)
		}
	}
}

func (l loop) refreshMQTT() {
	if l.mqttStatus != nil {
		l.tracker.SetMQTTConnected(l.mqttStatus.IsConnected())
	}
}
