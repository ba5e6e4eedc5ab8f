package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/Netflix/go-env"
	"github.com/gookit/color"
	"github.com/gorilla/websocket"
	"github.com/mama165/sdk-go/logs"
	"github.com/olekukonko/tablewriter"
)

// Exit codes for the client application.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

// Config defines the client-side environment variables.
type Config struct {
	ServerURL string `env:"CHAT_SERVER_URL,default=ws://localhost:8080/ws"`
	UserName  string `env:"CHAT_USER_NAME"`
	LogLevel  string `env:"LOG_LEVEL,default=INFO"`
}

type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type wireMessage struct {
	ID        string              `json:"id"`
	User      string              `json:"user"`
	Msg       string              `json:"msg"`
	Kind      string              `json:"kind"`
	Scope     string              `json:"scope"`
	Timestamp string              `json:"timestamp"`
	Reactions map[string][]string `json:"reactions"`
}

func main() {
	// The main function manages the OS exit code based on run()'s return.
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Client error: %v\n", err)
	}
	os.Exit(code)
}

// run handles the WebSocket client lifecycle, configuration loading, and
// the interactive command loop.
func run() (int, error) {
	// 1. Load configuration from environment variables.
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Setup context to handle termination signals (Ctrl+C).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Establish the WebSocket connection.
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, config.ServerURL, nil)
	if err != nil {
		return exitRuntime, fmt.Errorf("could not connect to server at %s: %w", config.ServerURL, err)
	}
	defer func() {
		log.Info("Closing connection...")
		_ = conn.Close()
	}()

	header := fmt.Sprintf(">>> Connected to %s (Ctrl+C to quit)", config.ServerURL)
	fmt.Println(color.New(color.BgBlack, color.FgGreen).Render(header))

	// 4. Identify, then hand the socket to the render loop.
	if config.UserName != "" {
		if err := send(conn, "new user", config.UserName); err != nil {
			return exitRuntime, err
		}
	}

	done := make(chan error, 1)
	go func() { done <- renderLoop(conn) }()
	go inputLoop(ctx, conn)

	// 5. Wait for termination or a socket failure.
	select {
	case <-ctx.Done():
		log.Info("Stopping client...")
		return exitOK, nil
	case err := <-done:
		if ctx.Err() != nil {
			return exitOK, nil
		}
		return exitRuntime, fmt.Errorf("connection lost: %w", err)
	}
}

// renderLoop prints every server event until the socket dies.
func renderLoop(conn *websocket.Conn) error {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		var env envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			continue
		}
		render(env)
	}
}

func render(env envelope) {
	switch env.Event {
	case "new message":
		var m wireMessage
		if json.Unmarshal(env.Data, &m) != nil {
			return
		}
		printMessage(m)

	case "get users":
		var users []string
		if json.Unmarshal(env.Data, &users) != nil {
			return
		}
		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"Online users"})
		table.SetBorder(false)
		for _, u := range users {
			table.Append([]string{u})
		}
		table.Render()

	case "room history", "dm history":
		var h struct {
			Room     string        `json:"room"`
			With     string        `json:"with"`
			Messages []wireMessage `json:"messages"`
		}
		if json.Unmarshal(env.Data, &h) != nil {
			return
		}
		title := h.Room
		if title == "" {
			title = "dm with " + h.With
		}
		fmt.Println(color.Cyan.Render("--- history: " + title + " ---"))
		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"Time", "User", "Message"})
		table.SetBorder(false)
		table.SetAutoWrapText(false)
		for _, m := range h.Messages {
			body := m.Msg
			if m.Kind == "voice" {
				body = "(voice message)"
			}
			table.Append([]string{m.Timestamp, m.User, body})
		}
		table.Render()

	case "user joined", "user left":
		var n struct {
			User      string `json:"user"`
			Timestamp string `json:"timestamp"`
		}
		if json.Unmarshal(env.Data, &n) != nil {
			return
		}
		verb := "joined"
		if env.Event == "user left" {
			verb = "left"
		}
		fmt.Println(color.Yellow.Render(fmt.Sprintf("[%s] %s %s", n.Timestamp, n.User, verb)))

	case "typing", "stop typing", "message read":
		// Ephemeral notices stay quiet on the console client.

	case "dm error":
		var e struct {
			To     string `json:"to"`
			Reason string `json:"reason"`
		}
		if json.Unmarshal(env.Data, &e) != nil {
			return
		}
		fmt.Println(color.Red.Render(fmt.Sprintf("dm to %s failed: %s", e.To, e.Reason)))

	case "reaction updated":
		var r struct {
			Emoji string `json:"emoji"`
			User  string `json:"user"`
		}
		if json.Unmarshal(env.Data, &r) != nil {
			return
		}
		fmt.Println(color.Magenta.Render(fmt.Sprintf("%s toggled %s", r.User, r.Emoji)))

	case "pin updated":
		var p struct {
			Pinned bool   `json:"pinned"`
			User   string `json:"user"`
		}
		if json.Unmarshal(env.Data, &p) != nil {
			return
		}
		verb := "pinned"
		if !p.Pinned {
			verb = "unpinned"
		}
		fmt.Println(color.Magenta.Render(fmt.Sprintf("%s %s a message", p.User, verb)))
	}
}

func printMessage(m wireMessage) {
	body := m.Msg
	if m.Kind == "voice" {
		body = "(voice message)"
	}
	line := fmt.Sprintf("[%s] %s: %s", m.Timestamp, color.Green.Render(m.User), body)
	if len(m.Reactions) > 0 {
		var parts []string
		for emoji, who := range m.Reactions {
			parts = append(parts, fmt.Sprintf("%s x%d", emoji, len(who)))
		}
		line += color.FgGray.Render("  [" + strings.Join(parts, " ") + "]")
	}
	fmt.Println(line)
}

// inputLoop reads stdin commands until the context ends. Lines starting
// with '/' are commands, anything else is a room message.
func inputLoop(ctx context.Context, conn *websocket.Conn) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, "/") {
			_ = send(conn, "send message", line)
			continue
		}

		cmd, rest, _ := strings.Cut(line[1:], " ")
		switch cmd {
		case "name":
			_ = send(conn, "new user", rest)
		case "room":
			_ = send(conn, "switch room", map[string]string{"room": rest})
		case "dm":
			to, msg, _ := strings.Cut(rest, " ")
			_ = send(conn, "direct message", map[string]string{"to": to, "msg": msg})
		case "react":
			id, emoji, _ := strings.Cut(rest, " ")
			_ = send(conn, "toggle reaction", map[string]string{"id": id, "emoji": emoji})
		case "pin":
			_ = send(conn, "toggle pin", map[string]string{"id": rest})
		case "history":
			_ = send(conn, "request room history", nil)
		case "dmhistory":
			_ = send(conn, "request dm history", map[string]string{"with": rest})
		default:
			fmt.Println(color.Red.Render("unknown command: /" + cmd))
		}
	}
}

func send(conn *websocket.Conn, event string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return conn.WriteJSON(envelope{Event: event, Data: payload})
}
