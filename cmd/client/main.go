package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mokjang/internal/api"
	"mokjang/internal/attendance"
	"mokjang/internal/platform/config"
	"mokjang/internal/platform/logger"
	"mokjang/internal/platform/metrics"
	"mokjang/internal/realtime"
)

// main runs a console sync client: it loads the roster for one day, prints
// it, and then tails live updates from the push channel until interrupted.
func main() {
	day := flag.String("day", attendance.Day(time.Now()), "attendance day to view (YYYY-MM-DD)")
	flag.Parse()

	cfg := config.ClientFromEnv()
	log := logger.New()
	m := metrics.New(nil)

	client, err := api.NewClient(cfg.BaseURL)
	if err != nil {
		log.Error("invalid backend URL", "url", cfg.BaseURL, "error", err.Error())
		os.Exit(1)
	}

	coord := realtime.NewCoordinator(realtime.CoordinatorConfig{
		Fetcher:    client,
		Writer:     client,
		PushURL:    client.WebSocketURL(cfg.Name),
		PendingTTL: cfg.PendingTTL,
		Logger:     log,
		Metrics:    m,
		OnWriteError: func(err error) {
			log.Warn("write failed, change reverted", "error", err.Error())
		},
		OnRemoteChange: func(f attendance.Fact) {
			fmt.Printf("update: person %d on %s worship=%t mokjang=%t\n",
				f.PersonID, f.Day, f.Worship, f.Mokjang)
		},
	})
	defer coord.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := coord.Start(ctx); err != nil {
		log.Warn("push channel unavailable, retrying in background", "error", err.Error())
	}
	if err := coord.SetViewedDay(ctx, *day); err != nil {
		log.Error("loading roster", "day", *day, "error", err.Error())
		os.Exit(1)
	}

	printRoster(coord)
	fmt.Println("watching for live updates, Ctrl-C to quit")
	<-ctx.Done()
}

func printRoster(coord *realtime.Coordinator) {
	people := coord.People()
	day := coord.ViewedDay()
	fmt.Printf("roster for %s (%d people, connection %s)\n", day, len(people), coord.ConnectionStatus())
	for _, g := range attendance.GroupByMokjang(people) {
		fmt.Printf("  %s\n", g.Name)
		for _, p := range g.People {
			f := p.FactFor(day)
			fmt.Printf("    %-12s worship=%-5t mokjang=%t\n", p.Name, f.Worship, f.Mokjang)
		}
	}
	s := coord.Summary()
	fmt.Printf("attended %d/%d (%d%%)\n", s.Total-s.Absent, s.Total, s.Rate)
}
