package main

import (
	"flag"
	"log"
)

var (
	addr  = flag.String("addr", "ws://localhost:4000/ws", "pubsubd websocket address")
	mode  = flag.String("mode", "sub", "pub or sub")
	topic = flag.String("topic", "default", "topic name")
	msg   = flag.String("msg", "", "payload for pub")
	id    = flag.String("id", "m0", "message id for pub")
	lastN = flag.Int("last_n", 0, "replay depth for sub")
)

func main() {
	flag.Parse()

	switch *mode {
	case "pub":
		runPublish(*addr, *topic, *id, *msg)
	case "sub":
		runSubscribe(*addr, *topic, *lastN)
	default:
		log.Fatalf("unknown mode %q: use pub or sub", *mode)
	}
}
