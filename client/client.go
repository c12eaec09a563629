package main

import (
	"bufio"
	"context"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/Netflix/go-env"
	"github.com/gorilla/websocket"
	"github.com/mama165/sdk-go/logs"
)

// Exit codes for the client application.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

// Config defines the client-side environment variables.
type Config struct {
	ServerAddress  string `env:"CHAT_SERVER_ADDR,default=ws://localhost:8000"`
	ConversationID int64  `env:"CHAT_CONVERSATION_ID,default=1"`
	Token          string `env:"CHAT_TOKEN,required=true"`
	LogLevel       string `env:"LOG_LEVEL,default=INFO"`
}

type inbound struct {
	Action  string `json:"action"`
	Content string `json:"content,omitempty"`
}

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Client error: %v\n", err)
	}
	os.Exit(code)
}

// run joins one conversation, prints every frame and turns stdin lines into events.
// "/typing" and "/read" send the matching event, anything else is a message.
func run() (int, error) {
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	address := fmt.Sprintf("%s/ws/conversations/%d/?token=%s",
		strings.TrimSuffix(config.ServerAddress, "/"), config.ConversationID, url.QueryEscape(config.Token))
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, address, nil)
	if err != nil {
		return exitRuntime, fmt.Errorf("could not connect to %s: %w", config.ServerAddress, err)
	}
	defer func() {
		log.Info("Closing connection...")
		_ = conn.Close()
	}()
	log.Info("Connected, type a message (Ctrl+C to quit)", "conversation_id", config.ConversationID)

	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			var evt inbound
			switch line {
			case "":
				continue
			case "/typing":
				evt = inbound{Action: "typing"}
			case "/read":
				evt = inbound{Action: "read"}
			default:
				evt = inbound{Action: "message", Content: line}
			}
			if err := conn.WriteJSON(evt); err != nil {
				log.Warn("Send failed", "error", err)
				stop()
				return
			}
		}
	}()

	errChan := make(chan error, 1)
	go func() {
		for {
			_, frame, err := conn.ReadMessage()
			if err != nil {
				errChan <- err
				return
			}
			fmt.Println(string(frame))
		}
	}()

	select {
	case <-ctx.Done():
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		return exitOK, nil
	case err := <-errChan:
		if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
			return exitOK, nil
		}
		return exitRuntime, fmt.Errorf("connection closed: %w", err)
	}
}
