package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/vovakirdan/wiredraw-server/internal/proto"
)

type frame struct {
	Type    string `json:"type"`
	RoomID  int64  `json:"roomId"`
	UserID  string `json:"userId"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

func main() {
	if err := run(); err != nil {
		log.Printf("ws_smoke: %v", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", "ws://localhost:8080/ws", "WebSocket address")
	token := flag.String("token", "", "credential issued by `wiredraw-server token`")
	room := flag.Int64("room", 1, "room id")
	timeout := flag.Duration("timeout", 5*time.Second, "total timeout for the run")
	flag.Parse()

	if *token == "" {
		return fmt.Errorf("-token is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, *addr+"?token="+*token, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	mustSend := func(v interface{}) error {
		if err := wsjson.Write(ctx, conn, v); err != nil {
			return fmt.Errorf("send: %w", err)
		}
		return nil
	}

	line := `{"shape":{"type":"line","startX":0,"startY":0,"endX":10,"endY":10}}`
	erase := `{"shapesToErase":[{"type":"line","startX":0,"startY":0,"endX":10,"endY":10}]}`

	if err := mustSend(map[string]any{"type": proto.InboundTypeJoinRoom, "roomId": *room}); err != nil {
		return err
	}
	if err := mustSend(map[string]any{"type": proto.InboundTypeChat, "roomId": *room, "message": line}); err != nil {
		return err
	}
	if err := expect(ctx, conn, proto.OutboundTypeChat); err != nil {
		return err
	}
	if err := mustSend(map[string]any{"type": proto.InboundTypeErase, "roomId": *room, "message": erase}); err != nil {
		return err
	}
	if err := expect(ctx, conn, proto.OutboundTypeErase); err != nil {
		return err
	}

	log.Printf("ws_smoke: draw and erase round-trip ok in room %d", *room)
	return nil
}

func expect(ctx context.Context, conn *websocket.Conn, typ string) error {
	for {
		var f frame
		if err := wsjson.Read(ctx, conn, &f); err != nil {
			return fmt.Errorf("read %s: %w", typ, err)
		}
		log.Printf("ws_smoke: <- %s room=%d user=%s", f.Type, f.RoomID, f.UserID)
		switch f.Type {
		case typ:
			return nil
		case proto.OutboundTypeError:
			return fmt.Errorf("server error %s: %s", f.Code, f.Message)
		}
	}
}
