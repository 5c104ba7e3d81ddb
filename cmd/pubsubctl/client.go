package main

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/gorilla/websocket"

	"github.com/adityasinghania3802/pub-sub-plivo/internal/protocol"
)

// runPublish dials addr, subscribes to nothing, sends a single publish
// envelope, waits for its ack (or error), and returns.
func runPublish(addr, topic, id, msg string) {
	conn, _, err := websocket.DefaultDialer.Dial(addr, nil)
	if err != nil {
		log.Fatalf("dial error: %v", err)
	}
	defer conn.Close()

	req := protocol.Inbound{
		Type:      "publish",
		Topic:     topic,
		RequestID: "pub-1",
		Message:   &protocol.Message{ID: id, Payload: msg},
	}
	if err := conn.WriteJSON(req); err != nil {
		log.Fatalf("publish error: %v", err)
	}

	var reply protocol.Outbound
	if err := conn.ReadJSON(&reply); err != nil {
		log.Fatalf("read reply error: %v", err)
	}
	printReply(reply)
}

// runSubscribe dials addr, subscribes to topic with the given replay depth,
// and prints every envelope it receives until the connection closes.
func runSubscribe(addr, topic string, lastN int) {
	conn, _, err := websocket.DefaultDialer.Dial(addr, nil)
	if err != nil {
		log.Fatalf("dial error: %v", err)
	}
	defer conn.Close()

	req := protocol.Inbound{
		Type:      "subscribe",
		Topic:     topic,
		ClientID:  "pubsubctl",
		RequestID: "sub-1",
		LastN:     lastN,
	}
	if err := conn.WriteJSON(req); err != nil {
		log.Fatalf("subscribe error: %v", err)
	}

	for {
		var out protocol.Outbound
		if err := conn.ReadJSON(&out); err != nil {
			log.Println("stream closed:", err)
			return
		}
		printReply(out)
	}
}

func printReply(out protocol.Outbound) {
	b, _ := json.Marshal(out)
	fmt.Println(string(b))
}
