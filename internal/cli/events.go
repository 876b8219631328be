package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
)

type watchOptions struct {
	name   string
	lobby  string
	create bool
	input  bool
	until  string
}

func newWatchCmd() *cobra.Command {
	var opts watchOptions

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Connect to the game server and stream its messages",
		Long: `Open a game connection, claim a display name and print every message the server sends.

With --create a new lobby is opened; with --lobby an existing one is joined.
With --input, lines read from stdin are sent to the server:
  /create              open a lobby
  /join <id>           join a lobby
  /exit                leave the lobby
  /start               start a game (owner only)
  /select <word>       choose the word to paint
  /settings k=v ...    rounds, timer (ms), wordChoiceCount, hintCount
  anything else        a guess

Press Ctrl+C to disconnect.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.name == "" {
				opts.name = cfg.Name
			}
			if opts.name == "" {
				return errors.New("--name is required (env: PAINTER_NAME)")
			}
			if opts.create && opts.lobby != "" {
				return errors.New("--create and --lobby are mutually exclusive")
			}

			if cfg.Verbose {
				wsURL, _ := cfg.WebSocketURL()
				fmt.Fprintf(cmd.ErrOrStderr(), "connecting to %s as %s\n", wsURL, opts.name)
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			return watch(ctx, opts, cmd.InOrStdin(), NewOutput(cfg.Output, cmd.OutOrStdout()))
		},
	}

	cmd.Flags().StringVar(&opts.name, "name", "", "Display name (env: PAINTER_NAME)")
	cmd.Flags().StringVar(&opts.lobby, "lobby", "", "Lobby ID to join")
	cmd.Flags().BoolVar(&opts.create, "create", false, "Create a new lobby")
	cmd.Flags().BoolVar(&opts.input, "input", false, "Send commands and guesses read from stdin")
	cmd.Flags().StringVar(&opts.until, "until", "", "Disconnect after the first message of this type")

	return cmd
}

// gameConn serializes writes to the WebSocket
type gameConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *gameConn) send(msgType string, data any) error {
	frame := map[string]any{"type": msgType}
	if data != nil {
		frame["data"] = data
	}
	raw, err := json.Marshal(frame)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return c.conn.WriteMessage(websocket.TextMessage, raw)
}

func (c *gameConn) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	_ = c.conn.Close()
}

func watch(ctx context.Context, opts watchOptions, in io.Reader, out *Output) error {
	url, err := cfg.WebSocketURL()
	if err != nil {
		return err
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return fmt.Errorf("connection failed: %w", err)
	}
	gc := &gameConn{conn: conn}

	stopped := make(chan struct{})
	defer close(stopped)
	go func() {
		select {
		case <-ctx.Done():
			gc.close()
		case <-stopped:
			gc.close()
		}
	}()

	if err := gc.send("display_name", map[string]string{"displayName": opts.name}); err != nil {
		return err
	}
	switch {
	case opts.create:
		err = gc.send("lobby_create", nil)
	case opts.lobby != "":
		err = gc.send("lobby_join", map[string]string{"id": opts.lobby})
	}
	if err != nil {
		return err
	}

	if opts.input {
		go sendInput(in, gc, out)
	}

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			var closeErr *websocket.CloseError
			if errors.As(err, &closeErr) && closeErr.Text != "" {
				return fmt.Errorf("server closed the connection: %s", closeErr.Text)
			}
			return fmt.Errorf("connection lost: %w", err)
		}

		var e Event
		if err := json.Unmarshal(raw, &e); err != nil {
			continue
		}
		e.Time = time.Now()
		out.PrintEvent(e)

		if opts.until != "" && e.Type == opts.until {
			return nil
		}
	}
}

// sendInput turns stdin lines into game messages until in is exhausted
func sendInput(in io.Reader, gc *gameConn, out *Output) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		msgType, data, err := parseInput(line)
		if err != nil {
			out.PrintMessage(err.Error())
			continue
		}
		if err := gc.send(msgType, data); err != nil {
			return
		}
	}
}

// parseInput maps one line of user input to a message type and payload
func parseInput(line string) (string, any, error) {
	if !strings.HasPrefix(line, "/") {
		return "guess_word", map[string]string{"word": line}, nil
	}

	fields := strings.Fields(line)
	arg := strings.TrimSpace(strings.TrimPrefix(line, fields[0]))

	switch fields[0] {
	case "/create":
		return "lobby_create", nil, nil
	case "/join":
		if arg == "" {
			return "", nil, errors.New("usage: /join <id>")
		}
		return "lobby_join", map[string]string{"id": arg}, nil
	case "/exit":
		return "lobby_exit", nil, nil
	case "/start":
		return "game_start", nil, nil
	case "/select":
		if arg == "" {
			return "", nil, errors.New("usage: /select <word>")
		}
		return "select_word", map[string]string{"word": arg}, nil
	case "/settings":
		settings := map[string]int{}
		for _, kv := range fields[1:] {
			key, val, ok := strings.Cut(kv, "=")
			if !ok {
				return "", nil, fmt.Errorf("invalid setting %q, want key=value", kv)
			}
			n, err := strconv.Atoi(val)
			if err != nil {
				return "", nil, fmt.Errorf("invalid value for %s: %w", key, err)
			}
			settings[key] = n
		}
		if len(settings) == 0 {
			return "", nil, errors.New("usage: /settings rounds=3 timer=60000")
		}
		return "game_settings", map[string]any{"settings": settings}, nil
	default:
		return "", nil, fmt.Errorf("unknown command %s", fields[0])
	}
}
