package repl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"

	"github.com/tinyland-inc/truefriend/cmd/truefriend/internal"
	"github.com/tinyland-inc/truefriend/pkg/flow"
	"github.com/tinyland-inc/truefriend/pkg/logger"
	"github.com/tinyland-inc/truefriend/pkg/model"
	"github.com/tinyland-inc/truefriend/pkg/providers"
	"github.com/tinyland-inc/truefriend/pkg/qr"
	"github.com/tinyland-inc/truefriend/pkg/relay"
	"github.com/tinyland-inc/truefriend/pkg/router"
	"github.com/tinyland-inc/truefriend/pkg/store"
	"github.com/tinyland-inc/truefriend/pkg/vault"
)

// replCmd runs the full message pipeline against a console session. The
// sender is treated as a Telegram address so relay targeting works the
// same way it does in the gateway.
func replCmd(senderKey string, debug bool) error {
	logger.SetDebug(debug)
	defer logger.Sync()

	cfg, err := internal.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	v, err := vault.New(cfg.Data.EncryptionKey)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Data.DBPath()), 0o755); err != nil {
		return err
	}
	st, err := store.Open(cfg.Data.DBPath(), v)
	if err != nil {
		return err
	}
	defer st.Close()

	completer, err := providers.CreateCompleter(cfg)
	if err != nil {
		return err
	}

	qrGen, err := qr.NewGenerator(cfg.Data.QRDir(), v)
	if err != nil {
		return err
	}

	rl := relay.New(st)
	defer rl.Close()

	boundary := router.NewBoundary(
		router.New(st, flow.New(st), rl, completer, qrGen))

	fmt.Printf("%s truefriend console (%s). Ctrl+C to exit.\n\n", internal.Logo, completer.Model())
	interactiveMode(boundary, senderKey)

	return nil
}

func interactiveMode(boundary *router.Boundary, senderKey string) {
	prompt := fmt.Sprintf("%s You: ", internal.Logo)

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          prompt,
		HistoryFile:     filepath.Join(os.TempDir(), ".truefriend_history"),
		HistoryLimit:    100,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		fmt.Printf("Error initializing readline: %v\n", err)
		fmt.Println("Falling back to simple input mode...")
		simpleInteractiveMode(boundary, senderKey)
		return
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
				fmt.Println("\nGoodbye!")
				return
			}
			fmt.Printf("Error reading input: %v\n", err)
			continue
		}

		if !dispatch(boundary, senderKey, line) {
			return
		}
	}
}

func simpleInteractiveMode(boundary *router.Boundary, senderKey string) {
	reader := bufio.NewReader(os.Stdin)
	for {
		fmt.Printf("%s You: ", internal.Logo)
		line, err := reader.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				fmt.Println("\nGoodbye!")
				return
			}
			fmt.Printf("Error reading input: %v\n", err)
			continue
		}

		if !dispatch(boundary, senderKey, line) {
			return
		}
	}
}

func dispatch(boundary *router.Boundary, senderKey, line string) bool {
	input := strings.TrimSpace(line)
	if input == "" {
		return true
	}
	if input == "exit" || input == "quit" {
		fmt.Println("Goodbye!")
		return false
	}

	reply := boundary.Handle(context.Background(), input, model.PlatformTelegram, senderKey)
	if reply != "" {
		fmt.Printf("\n%s %s\n\n", internal.Logo, reply)
	}
	return true
}
