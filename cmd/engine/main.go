package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"bolt/jobs/tradefeed"
	"bolt/service"
	"bolt/snapshot"
	"bolt/testbook"
	"bolt/transport"
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		name            = flag.String("name", "", "instance tag (max 8 characters, required)")
		prodID          = flag.Uint("prodid", 0, "product id 1..65535, required (0 is loopback testing)")
		testBookSize    = flag.String("test-order-book-size", "", "seed N bids and N asks, accepts k/M suffixes")
		orderMulticast  = flag.String("order-multicast", "224.0.0.1:5000", "order ingress multicast group")
		resultMulticast = flag.String("result-multicast", "224.0.0.2:5000", "match result multicast group")
		statusMulticast = flag.String("status-multicast", "224.0.0.2:5000", "engine status multicast group")
		fuelServer      = flag.String("fuel-server", "", "host:port of the order book fuel server")
		fuelTimeout     = flag.Duration("fuel-timeout", 30*time.Second, "total snapshot load timeout")
		kafkaBrokers    = flag.String("kafka-brokers", "", "comma-separated Kafka brokers for the trade feed (optional)")
		kafkaTopic      = flag.String("kafka-topic", "bolt.trades", "Kafka topic for the trade feed")
	)
	flag.Parse()

	zl, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger init failed:", err)
		return 1
	}
	defer zl.Sync()
	logger := zl.Sugar()

	if *name == "" || len(*name) > 8 {
		logger.Errorw("instance tag must be 1..8 characters", "name", *name)
		return 1
	}
	if *prodID > 65535 {
		logger.Errorw("product id out of range", "prodid", *prodID)
		return 1
	}
	if *prodID == 0 && *testBookSize == "" {
		logger.Errorw("product id 0 is reserved for loopback testing with --test-order-book-size")
		return 1
	}

	eng := service.NewEngine(service.Config{
		ProductID: uint16(*prodID),
		Tag:       *name,
		Logger:    logger,
	})

	receiver, err := transport.NewReceiver(*orderMulticast, eng, logger)
	if err != nil {
		logger.Errorw("multicast join failed", "err", err)
		return 1
	}
	broadcaster, err := transport.NewBroadcaster(*resultMulticast, *statusMulticast, eng, logger)
	if err != nil {
		logger.Errorw("multicast sender setup failed", "err", err)
		return 1
	}
	defer broadcaster.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *testBookSize != "" {
		n, err := testbook.ParseSize(*testBookSize)
		if err != nil {
			logger.Errorw("bad --test-order-book-size", "err", err)
			return 1
		}
		if err := testbook.Seed(eng, n); err != nil {
			logger.Errorw("test book seed failed", "err", err)
			return 1
		}
		logger.Infow("synthetic book seeded", "bids", n, "asks", n)
	}

	if *fuelServer != "" {
		if _, err := snapshot.Load(ctx, *fuelServer, *fuelTimeout, eng, logger); err != nil {
			logger.Errorw("snapshot load failed", "err", err)
			return 1
		}
	}

	if *kafkaBrokers != "" {
		results := eng.EnableFeed(1 << 12)
		feed, err := tradefeed.New(strings.Split(*kafkaBrokers, ","), *kafkaTopic, results, logger)
		if err != nil {
			logger.Errorw("trade feed setup failed", "err", err)
			return 1
		}
		defer feed.Close()
		go feed.Run(ctx)
	}

	eng.MarkReady()

	go eng.RunMatcher(ctx)
	go eng.RunStatus(ctx, time.Second)
	go broadcaster.Run(ctx)
	go receiver.Run(ctx)

	logger.Infow("engine running",
		"product", *prodID,
		"tag", *name,
		"orders", *orderMulticast,
		"results", *resultMulticast,
		"status", *statusMulticast,
	)

	<-ctx.Done()
	logger.Infow("shutdown signal received")
	return 0
}
