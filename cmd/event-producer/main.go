package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"

	"github.com/progression-hub/internal/domain"
)

var playerPrefixes = []string{
	"Phoenix", "Shadow", "Thunder", "Storm", "Blaze", "Ninja", "Dragon", "Wolf", "Hawk", "Viper",
	"Ghost", "Titan", "Frost", "Cyber", "Nova", "Raven", "Omega", "Alpha", "Delta", "Sigma",
}

var mobTypes = []string{"zombie", "skeleton", "spider", "trork", "player"}

type simPlayer struct {
	id    string
	name  string
	coins int64
}

func newPlayers(n int) []*simPlayer {
	players := make([]*simPlayer, n)
	for i := range players {
		players[i] = &simPlayer{
			id:   uuid.NewString(),
			name: fmt.Sprintf("%s%d", playerPrefixes[i%len(playerPrefixes)], i/len(playerPrefixes)+1),
		}
	}
	return players
}

func intPtr(v int) *int       { return &v }
func int64Ptr(v int64) *int64 { return &v }

// randomEvent builds a plausible plugin event for p
func randomEvent(p *simPlayer, players []*simPlayer, server string) domain.Event {
	ev := domain.Event{
		Player: p.name,
		Data: domain.EventData{
			PlayerID:  p.id,
			Server:    server,
			Timestamp: time.Now().UnixMilli(),
		},
	}

	switch roll := rand.Intn(100); {
	case roll < 55:
		ev.Action = domain.EventKill
		ev.Data.MobType = mobTypes[rand.Intn(len(mobTypes))]
		ev.Data.Location = fmt.Sprintf("%d,%d,%d", rand.Intn(2000)-1000, 64, rand.Intn(2000)-1000)
		if ev.Data.MobType == "player" {
			ev.Data.VictimName = players[rand.Intn(len(players))].name
		}
	case roll < 70:
		ev.Action = domain.EventDeath
	case roll < 85:
		earned := int64(rand.Intn(40) + 5)
		p.coins += earned
		ev.Action = domain.EventCoinEarn
		ev.Data.CoinsEarned = int64Ptr(earned)
		ev.Data.TotalCoins = int64Ptr(p.coins)
		ev.Data.Reason = "quest"
	case roll < 95 && p.coins > 0:
		spent := min(p.coins, int64(rand.Intn(30)+1))
		p.coins -= spent
		ev.Action = domain.EventCoinSpend
		ev.Data.CoinsSpent = int64Ptr(spent)
		ev.Data.TotalCoins = int64Ptr(p.coins)
		ev.Data.Item = "potion"
	default:
		ev.Action = domain.EventLeave
		ev.Data.PlayTimeMinutes = intPtr(rand.Intn(90) + 1)
	}
	return ev
}

func main() {
	// Command line flags
	brokers := flag.String("brokers", "localhost:9094", "Kafka brokers (comma-separated)")
	topic := flag.String("topic", "player-events", "Kafka topic")
	server := flag.String("server", domain.DefaultServer, "Server name reported in events")
	totalPlayers := flag.Int("players", 100, "Total number of simulated players")
	eventsPerSecond := flag.Int("rate", 50, "Events per second")
	duration := flag.Duration("duration", 0, "Duration to run (0 = forever)")
	flag.Parse()

	brokerList := strings.Split(*brokers, ",")
	if *totalPlayers <= 0 || *eventsPerSecond <= 0 {
		log.Fatal("players and rate must be positive")
	}

	fmt.Println("Plugin event producer")
	fmt.Printf("  Brokers:      %s\n", *brokers)
	fmt.Printf("  Topic:        %s\n", *topic)
	fmt.Printf("  Players:      %d\n", *totalPlayers)
	fmt.Printf("  Events/sec:   %d\n", *eventsPerSecond)
	fmt.Println()

	// Configure Sarama producer
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForLocal
	config.Producer.Compression = sarama.CompressionSnappy
	config.Producer.Flush.Frequency = 100 * time.Millisecond
	config.Producer.Flush.Messages = 100
	config.Producer.Return.Successes = true
	config.Producer.Return.Errors = true

	// Create producer
	producer, err := sarama.NewAsyncProducer(brokerList, config)
	if err != nil {
		log.Fatalf("Failed to create producer: %v", err)
	}

	// Handle producer errors and successes
	var successCount, errorCount int64
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		for range producer.Successes() {
			atomic.AddInt64(&successCount, 1)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		for err := range producer.Errors() {
			atomic.AddInt64(&errorCount, 1)
			log.Printf("Producer error: %v", err)
		}
	}()

	// Events of one player share a key so they stay ordered within a partition
	send := func(ev domain.Event) {
		data, err := json.Marshal(ev)
		if err != nil {
			log.Printf("Failed to marshal event: %v", err)
			return
		}
		producer.Input() <- &sarama.ProducerMessage{
			Topic: *topic,
			Key:   sarama.StringEncoder(ev.Data.PlayerID),
			Value: sarama.ByteEncoder(data),
		}
	}

	finish := func() {
		producer.AsyncClose()
		wg.Wait()
		fmt.Printf("\nCompleted. Sent: %d, Errors: %d\n", atomic.LoadInt64(&successCount), atomic.LoadInt64(&errorCount))
	}

	players := newPlayers(*totalPlayers)
	for _, p := range players {
		send(domain.Event{
			Player: p.name,
			Action: domain.EventJoin,
			Data:   domain.EventData{PlayerID: p.id, Server: *server, Timestamp: time.Now().UnixMilli()},
		})
	}
	fmt.Printf("Joined %d players\n", len(players))

	// Handle shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(time.Second / time.Duration(*eventsPerSecond))
	defer ticker.Stop()

	statsTicker := time.NewTicker(5 * time.Second)
	defer statsTicker.Stop()

	var endTime time.Time
	if *duration > 0 {
		endTime = time.Now().Add(*duration)
	}

	var eventCount int64
	for {
		select {
		case <-sigChan:
			fmt.Println("\nShutting down...")
			finish()
			return

		case <-ticker.C:
			if *duration > 0 && time.Now().After(endTime) {
				fmt.Println("\nDuration reached, shutting down...")
				finish()
				return
			}
			p := players[rand.Intn(len(players))]
			send(randomEvent(p, players, *server))
			eventCount++

		case <-statsTicker.C:
			fmt.Printf("[%s] Events: %d | Sent: %d | Errors: %d\n",
				time.Now().Format("15:04:05"),
				eventCount,
				atomic.LoadInt64(&successCount),
				atomic.LoadInt64(&errorCount),
			)
		}
	}
}
