package sh

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/halflink/pkg/env"
	fx "github.com/robotalks/halflink/pkg/framework"
	"github.com/robotalks/halflink/pkg/link"
	"github.com/robotalks/halflink/pkg/payload"
)

// Shell provides ishell backed interactive controller shell.
type Shell struct {
	Interactive bool
	OutputJSON  bool

	Shell  *ishell.Shell
	Config *env.Config
	Conn   Sender
}

// Sender is the part of link.Conn used by the shell.
type Sender interface {
	SendCommand(command byte, throttle float32, immediately bool)
	SendBinaryPayload(payload []byte, immediately bool)
	Pending() int
	State() link.State
	Interval() time.Duration
}

// Received is a payload printed in JSON output mode.
type Received struct {
	Kind     string   `json:"kind"`
	Command  *byte    `json:"command,omitempty"`
	Throttle *float32 `json:"throttle,omitempty"`
	Payload  string   `json:"payload,omitempty"`
	Text     string   `json:"text,omitempty"`
}

const (
	shellKey = "$shell"
	prompt   = "link > "
)

var (
	// flags

	evalOnly   bool
	outputJSON bool

	// commands
	commands = []*ishell.Cmd{
		&CommandCmd,
		&UrgentCmd,
		&BinaryCmd,
		&TextCmd,
		&StatusCmd,
	}
)

func init() {
	flag.BoolVar(&evalOnly, "e", evalOnly, "Evaluation only, no interactive shell.")
	flag.BoolVar(&outputJSON, "json", outputJSON, "Print output in JSON.")
}

// AddCmds registers more commands before New.
func AddCmds(cmds ...*ishell.Cmd) {
	commands = append(commands, cmds...)
}

// New creates a new shell.
func New(conf *env.Config) *Shell {
	s := &Shell{
		Interactive: !evalOnly,
		OutputJSON:  outputJSON,

		Shell:  ishell.New(),
		Config: conf,
	}
	s.Shell.Set(shellKey, s)
	s.Shell.SetPrompt(prompt)
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	return s
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// HandleCommand implements link.CommandHandler.
func (s *Shell) HandleCommand(ctx context.Context, command byte, throttle float32) {
	if s.OutputJSON {
		s.printJSON(&Received{Kind: "command", Command: &command, Throttle: &throttle})
		return
	}
	s.Shell.Printf("<< command %d throttle %v\n", command, throttle)
}

// HandleBinary implements link.BinaryHandler.
func (s *Shell) HandleBinary(ctx context.Context, data []byte) {
	if s.OutputJSON {
		r := &Received{Kind: "binary", Payload: hex.EncodeToString(data)}
		if _, err := payload.Unpack(data); err == nil {
			r.Text = payload.Describe(data)
		}
		s.printJSON(r)
		return
	}
	s.Shell.Printf("<< binary %s\n", payload.Describe(data))
}

func (s *Shell) printJSON(r *Received) {
	out, err := json.Marshal(r)
	if err != nil {
		s.Shell.Println(err)
		return
	}
	s.Shell.Println(string(out))
}

// Runnable returns a Runnable which runs the shell until ctx is canceled
// or input ends.
func (s *Shell) Runnable(args ...string) fx.Runnable {
	return fx.NamedRun("shell", fx.RunFunc(func(ctx context.Context) error {
		return fx.RunWithContextCancel(ctx, s.Shell.Close, func() error {
			return s.Run(args...)
		})
	}))
}

// Run runs the shell. With args, they are evaluated as a single command
// and Run returns when the queue is drained.
func (s *Shell) Run(args ...string) error {
	if len(args) > 0 {
		if err := s.Shell.Process(args...); err != nil {
			return err
		}
		s.drain()
		return nil
	}
	if !s.Interactive {
		return fmt.Errorf("command expected")
	}
	s.Shell.Run()
	return nil
}

func (s *Shell) drain() {
	if s.Conn == nil {
		return
	}
	for s.Conn.Pending() > 0 && s.Conn.State() == link.StateRunning {
		time.Sleep(s.Conn.Interval())
	}
}

func parseCommand(args []string) (byte, float32, error) {
	if len(args) < 1 || len(args) > 2 {
		return 0, 0, fmt.Errorf("usage: COMMAND [THROTTLE]")
	}
	command, err := strconv.ParseUint(args[0], 0, 8)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid command %q: %v", args[0], err)
	}
	var throttle float64
	if len(args) > 1 {
		if throttle, err = strconv.ParseFloat(args[1], 32); err != nil {
			return 0, 0, fmt.Errorf("invalid throttle %q: %v", args[1], err)
		}
	}
	return byte(command), float32(throttle), nil
}

// MustBeConnected wraps command func requires a connection.
func MustBeConnected(fn func(c *ishell.Context, s *Shell)) func(c *ishell.Context) {
	return func(c *ishell.Context) {
		s := ShellFrom(c)
		if s.Conn == nil || s.Conn.State() != link.StateRunning {
			c.Err(fmt.Errorf("not connected"))
			return
		}
		fn(c, s)
	}
}

func sendCommand(immediately bool) func(c *ishell.Context, s *Shell) {
	return func(c *ishell.Context, s *Shell) {
		command, throttle, err := parseCommand(c.Args)
		if err != nil {
			c.Err(err)
			return
		}
		s.Conn.SendCommand(command, throttle, immediately)
	}
}

var (
	// CommandCmd queues a command.
	CommandCmd = ishell.Cmd{
		Name:    "command",
		Aliases: []string{"cmd", "c"},
		Help:    "COMMAND [THROTTLE]",
		Func:    MustBeConnected(sendCommand(false)),
	}

	// UrgentCmd sends a command ahead of everything queued.
	UrgentCmd = ishell.Cmd{
		Name:    "urgent",
		Aliases: []string{"u"},
		Help:    "COMMAND [THROTTLE]",
		Func:    MustBeConnected(sendCommand(true)),
	}

	// BinaryCmd queues a binary payload given in hex.
	BinaryCmd = ishell.Cmd{
		Name:    "binary",
		Aliases: []string{"bin", "b"},
		Help:    "HEX...",
		Func: MustBeConnected(func(c *ishell.Context, s *Shell) {
			data, err := hex.DecodeString(strings.Join(c.Args, ""))
			if err != nil {
				c.Err(err)
				return
			}
			s.Conn.SendBinaryPayload(data, false)
		}),
	}

	// TextCmd queues a typed text payload.
	TextCmd = ishell.Cmd{
		Name:    "text",
		Aliases: []string{"t"},
		Help:    "TEXT...",
		Func: MustBeConnected(func(c *ishell.Context, s *Shell) {
			s.Conn.SendBinaryPayload(payload.Text(strings.Join(c.Args, " ")), false)
		}),
	}

	// StatusCmd prints connection status.
	StatusCmd = ishell.Cmd{
		Name:    "status",
		Aliases: []string{"s"},
		Help:    "",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			if s.Conn == nil {
				c.Println("not connected")
				return
			}
			c.Printf("%s, interval %v, %d pending\n", s.Conn.State(), s.Conn.Interval(), s.Conn.Pending())
		},
	}
)

// Main is a helper to provide a single call in main.
func Main() {
	flag.Parse()
	conf := env.NewConfig()
	s := New(conf)
	runner := fx.NewRunner().HandleSignals()
	conn, t, err := conf.Open(runner.Context, env.Controller, s, s)
	if err != nil {
		log.Fatalln(err)
	}
	s.Conn = conn
	if closer, ok := t.(interface{ Close() error }); ok {
		defer closer.Close()
	}
	if err = runner.Go(conn, s.Runnable(flag.Args()...)).Wait(); err != nil {
		log.Fatalln(err)
	}
}
