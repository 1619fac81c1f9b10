package main

import (
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

	"github.com/gorilla/websocket"

	"github.com/relaychat/relaychat/pkg/protocol"
)

const loremIpsum = "Lorem ipsum dolor sit amet, consectetur adipiscing elit, sed do eiusmod tempor incididunt ut labore et dolore magna aliqua. Ut enim ad minim veniam, quis nostrud exercitation ullamco laboris nisi ut aliquip ex ea commodo consequat."

var loremWords = strings.Fields(loremIpsum)

var reactions = []string{"👍", "❤️", "😂", "🎉"}

type stats struct {
	sent     atomic.Uint64
	received atomic.Uint64
	errors   atomic.Uint64
}

func randomText() string {
	n := 3 + rand.Intn(10)
	words := make([]string, n)
	for i := range words {
		words[i] = loremWords[rand.Intn(len(loremWords))]
	}
	return strings.Join(words, " ")
}

func main() {
	addr := flag.String("addr", "localhost:4000", "Server address")
	clients := flag.Int("clients", 50, "Number of concurrent clients")
	rooms := flag.Int("rooms", 5, "Number of rooms to spread clients across")
	rate := flag.Duration("rate", 500*time.Millisecond, "Delay between events per client")
	duration := flag.Duration("duration", 30*time.Second, "Test duration")
	flag.Parse()

	log.Printf("Starting load test: %d clients, %d rooms, %v per event, %v total",
		*clients, *rooms, *rate, *duration)

	var st stats
	var wg sync.WaitGroup
	stop := make(chan struct{})

	for i := 0; i < *clients; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			runClient(id, *addr, *rooms, *rate, stop, &st)
		}(i)
	}

	// Stop on duration elapsed or Ctrl-C, whichever comes first
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	select {
	case <-time.After(*duration):
	case <-sigChan:
		log.Println("Interrupted")
	}
	close(stop)
	wg.Wait()

	log.Printf("Done: sent=%d received=%d errors=%d",
		st.sent.Load(), st.received.Load(), st.errors.Load())
}

func runClient(id int, addr string, rooms int, rate time.Duration, stop <-chan struct{}, st *stats) {
	username := fmt.Sprintf("loadtest-%d", id)
	url := fmt.Sprintf("ws://%s/ws?username=%s", addr, username)

	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		log.Printf("client %d: dial failed: %v", id, err)
		st.errors.Add(1)
		return
	}
	defer ws.Close()

	// Drain inbound frames, remembering the last message id so reactions
	// have something to target
	var lastMsgID atomic.Value
	go func() {
		for {
			_, data, err := ws.ReadMessage()
			if err != nil {
				return
			}
			ev, err := protocol.DecodeEvent(data)
			if err != nil {
				continue
			}
			st.received.Add(1)
			if ev.Name == protocol.EventRoomMessage {
				var msg protocol.Message
				if ev.DecodePayload(&msg) == nil && msg.ID != "" {
					lastMsgID.Store(msg.ID)
				}
			}
		}
	}()

	room := fmt.Sprintf("load-%d", id%rooms)
	send := func(name string, payload any) bool {
		frame, err := protocol.EncodeEvent(name, payload)
		if err != nil {
			st.errors.Add(1)
			return false
		}
		if err := ws.WriteMessage(websocket.TextMessage, frame); err != nil {
			st.errors.Add(1)
			return false
		}
		st.sent.Add(1)
		return true
	}

	if !send(protocol.EventRoomJoin, protocol.JoinRoom{Room: room}) {
		return
	}

	ticker := time.NewTicker(rate)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			// Mostly messages, with occasional reactions and read receipts
			switch rand.Intn(10) {
			case 0:
				if !send(protocol.EventRoomRead, protocol.ReadRoom{Room: room}) {
					return
				}
			case 1:
				if !send(protocol.EventRoomTyping, protocol.Typing{Room: room, Typing: true}) {
					return
				}
			case 2:
				id, _ := lastMsgID.Load().(string)
				if id == "" {
					continue
				}
				if !send(protocol.EventRoomReaction, protocol.React{
					Room:      room,
					MessageID: id,
					Reaction:  reactions[rand.Intn(len(reactions))],
				}) {
					return
				}
			default:
				if !send(protocol.EventRoomMessage, protocol.PostMessage{Room: room, Text: randomText()}) {
					return
				}
			}
		}
	}
}
