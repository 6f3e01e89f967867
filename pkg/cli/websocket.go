package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/getmockd/wsbridge/pkg/cli/internal/output"
	"github.com/getmockd/wsbridge/pkg/cli/internal/parse"
)

// wsOptions are the connection flags shared by the ws subcommands.
type wsOptions struct {
	headers     []string
	subprotocol string
	timeout     time.Duration
	count       int
	binary      bool
}

var wsFlagVals wsOptions

var wsCmd = &cobra.Command{
	Use:     "ws",
	Aliases: []string{"websocket"},
	Short:   "Connect, send, and listen to WebSocket endpoints",
}

var wsSendCmd = &cobra.Command{
	Use:   "send <url> <message>",
	Short: "Send a single message and exit",
	Long: `Send a single message to a WebSocket endpoint and exit.

The message may be @filename to send the contents of a file.`,
	Example: `  wsbridge ws send ws://localhost:8080/ "hello"
  wsbridge ws send -H "X-Client:bot" ws://localhost:8080/ @message.json`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		message := args[1]
		if len(message) > 0 && message[0] == '@' {
			b, err := os.ReadFile(message[1:])
			if err != nil {
				return fmt.Errorf("failed to read message file: %w", err)
			}
			message = string(b)
		}
		return wsSend(cmd.Context(), cmd.OutOrStdout(), wsFlagVals, args[0], message)
	},
}

var wsListenCmd = &cobra.Command{
	Use:   "listen <url>",
	Short: "Stream incoming messages",
	Example: `  wsbridge ws listen ws://localhost:8080/
  wsbridge ws listen -n 10 --json ws://localhost:8080/`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return wsListen(ctx, cmd.OutOrStdout(), cmd.ErrOrStderr(), wsFlagVals, args[0])
	},
}

var wsConnectCmd = &cobra.Command{
	Use:   "connect <url>",
	Short: "Interactive WebSocket client (REPL mode)",
	Long: `Start an interactive WebSocket client session.
Type messages and press Enter to send. Ctrl+C to exit.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return wsConnect(ctx, cmd.InOrStdin(), cmd.OutOrStdout(), wsFlagVals, args[0])
	},
}

func init() {
	pf := wsCmd.PersistentFlags()
	pf.StringArrayVarP(&wsFlagVals.headers, "header", "H", nil, "Custom headers (key:value), repeatable")
	pf.StringVar(&wsFlagVals.subprotocol, "subprotocol", "", "WebSocket subprotocol")
	pf.DurationVarP(&wsFlagVals.timeout, "timeout", "t", 30*time.Second, "Connection timeout")
	pf.BoolVar(&wsFlagVals.binary, "binary", false, "Send binary frames instead of text")
	wsListenCmd.Flags().IntVarP(&wsFlagVals.count, "count", "n", 0, "Number of messages to receive (0 = unlimited)")

	wsCmd.AddCommand(wsSendCmd, wsListenCmd, wsConnectCmd)
	rootCmd.AddCommand(wsCmd)
}

func dialWS(ctx context.Context, opts wsOptions, url string) (*websocket.Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: opts.timeout}
	if opts.subprotocol != "" {
		dialer.Subprotocols = []string{opts.subprotocol}
	}

	conn, resp, err := dialer.DialContext(ctx, url, parse.Header(opts.headers))
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("connection failed: %w (HTTP %d)", err, resp.StatusCode)
		}
		return nil, fmt.Errorf("connection failed: %w", err)
	}
	return conn, nil
}

func (o wsOptions) frameType() int {
	if o.binary {
		return websocket.BinaryMessage
	}
	return websocket.TextMessage
}

func closeWS(conn *websocket.Conn) {
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	_ = conn.Close()
}

func wsSend(ctx context.Context, w io.Writer, opts wsOptions, url, message string) error {
	conn, err := dialWS(ctx, opts, url)
	if err != nil {
		return err
	}
	defer closeWS(conn)

	if err := conn.WriteMessage(opts.frameType(), []byte(message)); err != nil {
		return fmt.Errorf("send error: %w", err)
	}

	if jsonOutput {
		return output.JSON(w, map[string]any{
			"success":   true,
			"url":       url,
			"message":   message,
			"timestamp": time.Now().Format(time.RFC3339),
		})
	}
	fmt.Fprintf(w, "Sent to %s: %s\n", url, message)
	return nil
}

// wsMessage represents a WebSocket message.
type wsMessage struct {
	Type int
	Data []byte
}

// messageTypeString returns a human-readable message type.
func messageTypeString(t int) string {
	switch t {
	case websocket.TextMessage:
		return "text"
	case websocket.BinaryMessage:
		return "binary"
	default:
		return "unknown"
	}
}

// readMessages pumps messages from conn until it fails. The returned error
// channel receives the terminal read error.
func readMessages(conn *websocket.Conn) (<-chan wsMessage, <-chan error) {
	msgs := make(chan wsMessage, 100)
	errs := make(chan error, 1)
	go func() {
		defer close(msgs)
		for {
			typ, data, err := conn.ReadMessage()
			if err != nil {
				errs <- err
				return
			}
			msgs <- wsMessage{Type: typ, Data: data}
		}
	}()
	return msgs, errs
}

func isNormalClose(err error) bool {
	return websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway)
}

func wsListen(ctx context.Context, w, errw io.Writer, opts wsOptions, url string) error {
	fmt.Fprintf(errw, "Connecting to %s...\n", url)
	conn, err := dialWS(ctx, opts, url)
	if err != nil {
		return err
	}
	defer closeWS(conn)

	if opts.count > 0 {
		fmt.Fprintf(errw, "Listening for %d messages (Ctrl+C to stop)\n", opts.count)
	} else {
		fmt.Fprintln(errw, "Listening for messages (Ctrl+C to stop)")
	}

	msgs, errs := readMessages(conn)
	received := 0
	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-errs:
			if isNormalClose(err) {
				fmt.Fprintln(errw, "Connection closed by server")
				return nil
			}
			return fmt.Errorf("read error: %w", err)
		case msg, ok := <-msgs:
			if !ok {
				continue
			}
			if jsonOutput {
				if err := output.Line(w, map[string]any{
					"type":      messageTypeString(msg.Type),
					"data":      string(msg.Data),
					"timestamp": time.Now().Format(time.RFC3339),
					"index":     received,
				}); err != nil {
					output.Warn(errw, "failed to encode output: %v", err)
				}
			} else {
				fmt.Fprintln(w, string(msg.Data))
			}

			received++
			if opts.count > 0 && received >= opts.count {
				fmt.Fprintf(errw, "Received %d messages\n", received)
				return nil
			}
		}
	}
}

func wsConnect(ctx context.Context, in io.Reader, w io.Writer, opts wsOptions, url string) error {
	fmt.Fprintf(w, "Connecting to %s...\n", url)
	conn, err := dialWS(ctx, opts, url)
	if err != nil {
		return err
	}
	defer closeWS(conn)
	fmt.Fprintln(w, "Connected. Type messages and press Enter to send. Ctrl+C to exit.")

	msgs, errs := readMessages(conn)

	input := make(chan string, 10)
	go func() {
		defer close(input)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case <-ctx.Done():
				return
			case input <- scanner.Text():
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			fmt.Fprintln(w, "\nDisconnecting...")
			return nil
		case err := <-errs:
			if isNormalClose(err) {
				fmt.Fprintln(w, "Connection closed by server")
				return nil
			}
			return fmt.Errorf("read error: %w", err)
		case msg, ok := <-msgs:
			if ok {
				fmt.Fprintf(w, "< %s\n", msg.Data)
			}
		case line, ok := <-input:
			if !ok {
				return nil
			}
			if line == "" {
				continue
			}
			if err := conn.WriteMessage(opts.frameType(), []byte(line)); err != nil {
				return fmt.Errorf("send error: %w", err)
			}
			fmt.Fprintf(w, "> %s\n", line)
		}
	}
}
