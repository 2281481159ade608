// Package sh implements the interactive CRUMBS control shell.
package sh

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"sort"
	"strconv"
	"time"

	"github.com/abiosoft/ishell"

	"github.com/CameronBrooks11/CRUMBS/pkg/bus"
	"github.com/CameronBrooks11/CRUMBS/pkg/comm/mqtt"
	"github.com/CameronBrooks11/CRUMBS/pkg/env"
	"github.com/CameronBrooks11/CRUMBS/pkg/message"
	"github.com/CameronBrooks11/CRUMBS/pkg/registry"
)

// Shell provides ishell backed interactive shell.
type Shell struct {
	Interactive bool
	OutputJSON  bool

	Shell    *ishell.Shell
	Config   *env.Config
	Registry *registry.Registry
	Conn     *SliceConn
}

// SliceConn is a live connection to one slice.
type SliceConn struct {
	Ctx     context.Context
	Cancel  func()
	SliceID uint8
	TypeID  uint8
	Queue   *mqtt.Queue
	Client  *bus.Client
}

const (
	shellKey          = "$shell"
	unconnectedPrompt = "[none] > "

	commandTimeout = time.Second
)

var (
	// flags

	evalOnly   bool
	outputJSON bool

	// commands
	commands = []*ishell.Cmd{
		&SlicesCmd,
		&ConnectCmd,
		&DisconnectCmd,
		&SendCmd,
		&WatchCmd,
	}
)

func init() {
	flag.BoolVar(&evalOnly, "e", evalOnly, "Evaluation only, no interactive shell.")
	flag.BoolVar(&outputJSON, "json", outputJSON, "Print output in JSON.")
}

// AddCmds is used by other command providers during init func.
func AddCmds(cmds ...*ishell.Cmd) {
	commands = append(commands, cmds...)
}

// New creates a new shell.
func New(conf *env.Config) *Shell {
	reg, err := conf.LoadRegistry()
	if err != nil {
		log.Fatalln(err)
	}
	s := &Shell{
		Interactive: !evalOnly,
		OutputJSON:  outputJSON,

		Shell:    ishell.New(),
		Config:   conf,
		Registry: reg,
	}
	s.Shell.Set(shellKey, s)
	s.Shell.SetPrompt(unconnectedPrompt)
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	return s
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// MustBeConnected wraps command func requiring a connection.
func MustBeConnected(fn func(c *ishell.Context)) func(c *ishell.Context) {
	return func(c *ishell.Context) {
		if ShellFrom(c).Conn == nil {
			c.Err(fmt.Errorf("not connected"))
			return
		}
		fn(c)
	}
}

// Connect opens a connection to one slice over the broker.
func (s *Shell) Connect(sliceID uint8) error {
	q, err := s.Config.NewQueue("crumbsctl")
	if err != nil {
		return err
	}
	conn := &SliceConn{SliceID: sliceID, Queue: q}
	if typeID, ok := s.Registry.SliceType(sliceID); ok {
		conn.TypeID = typeID
	}
	conn.Ctx, conn.Cancel = context.WithCancel(context.Background())
	rw := mqtt.NewPacketReadWriter(q).ForController(sliceID)
	conn.Client = bus.NewClient(rw)
	token := q.Connect()
	token.Wait()
	if err := token.Error(); err != nil {
		conn.Cancel()
		return err
	}
	s.Disconnect()
	s.Conn = conn
	go rw.Run(conn.Ctx)
	go conn.Client.Run(conn.Ctx)
	s.Shell.SetPrompt(fmt.Sprintf("[%s] > ", s.Registry.SliceName(sliceID)))
	return nil
}

// Disconnect drops the current slice connection.
func (s *Shell) Disconnect() {
	if s.Conn != nil {
		s.Conn.Cancel()
		s.Conn.Queue.Close()
		s.Conn = nil
		s.Shell.SetPrompt(unconnectedPrompt)
	}
}

// Run runs the shell.
func (s *Shell) Run(args ...string) {
	if len(args) > 0 {
		if err := s.Shell.Process(args...); err != nil {
			log.Fatalln(err)
		}
		return
	}
	if s.Interactive {
		s.Shell.Run()
		return
	}
	log.Fatalln("command expected")
}

// Main is the entry of crumbsctl.
func Main() {
	flag.Parse()
	log.SetFlags(0)
	s := New(env.NewConfig())
	defer s.Disconnect()
	s.Run(flag.Args()...)
}

type msgJSON struct {
	Slice       string                   `json:"slice"`
	SliceID     uint8                    `json:"slice_id"`
	Type        string                   `json:"type"`
	TypeID      uint8                    `json:"type_id"`
	Command     string                   `json:"command"`
	CommandType uint8                    `json:"command_type"`
	Data        [message.DataLen]float32 `json:"data"`
	ErrorFlags  uint8                    `json:"error_flags"`
}

// Format renders a message for display, honoring the -json flag.
func (s *Shell) Format(m message.Message) (string, error) {
	if !s.OutputJSON {
		return s.Registry.Describe(m), nil
	}
	out, err := json.Marshal(msgJSON{
		Slice:       s.Registry.SliceName(m.SliceID),
		SliceID:     m.SliceID,
		Type:        s.Registry.TypeName(m.TypeID),
		TypeID:      m.TypeID,
		Command:     s.Registry.CommandName(m.TypeID, m.CommandType),
		CommandType: m.CommandType,
		Data:        m.Data,
		ErrorFlags:  m.ErrorFlags,
	})
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func (s *Shell) printMsg(c *ishell.Context, m message.Message) {
	out, err := s.Format(m)
	if err != nil {
		c.Err(err)
		return
	}
	c.Println(out)
}

// DoCommand sends a command message and waits for the reply.
func DoCommand(c *ishell.Context, m *message.Message) {
	s := ShellFrom(c)
	cmd := s.Conn.Client.Do(m)
	select {
	case res := <-cmd.ResultChan():
		if res.Err != nil {
			c.Err(res.Err)
			if _, ok := res.Err.(*bus.SliceError); !ok {
				return
			}
		}
		s.printMsg(c, res.Reply)
	case <-time.After(commandTimeout):
		s.Conn.Client.Cancel(cmd)
		c.Err(fmt.Errorf("command timeout"))
	}
}

func parseSliceID(arg string) (uint8, error) {
	id, err := strconv.ParseUint(arg, 10, 8)
	if err != nil {
		return 0, fmt.Errorf("invalid slice ID %q", arg)
	}
	return uint8(id), nil
}

var (
	// SlicesCmd lists the slices named in the registry.
	SlicesCmd = ishell.Cmd{
		Name:    "slices",
		Aliases: []string{"list", "l"},
		Help:    "",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			if len(s.Registry.Slices) == 0 {
				c.Println("No slices in registry")
				return
			}
			sorted := append([]registry.SliceDef{}, s.Registry.Slices...)
			sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })
			for _, def := range sorted {
				c.Printf("%3d %s (%s)\n", def.ID, s.Registry.SliceName(def.ID), s.Registry.TypeName(def.Type))
			}
		},
	}

	// ConnectCmd connects a slice.
	ConnectCmd = ishell.Cmd{
		Name:    "connect",
		Aliases: []string{"c"},
		Help:    "SLICE-ID",
		Func: func(c *ishell.Context) {
			if len(c.Args) < 1 {
				c.Err(fmt.Errorf("SLICE-ID required"))
				return
			}
			sliceID, err := parseSliceID(c.Args[0])
			if err != nil {
				c.Err(err)
				return
			}
			if err := ShellFrom(c).Connect(sliceID); err != nil {
				c.Err(err)
			}
		},
	}

	// DisconnectCmd disconnects current slice.
	DisconnectCmd = ishell.Cmd{
		Name:    "disconnect",
		Aliases: []string{"d"},
		Help:    "",
		Func: func(c *ishell.Context) {
			ShellFrom(c).Disconnect()
		},
	}

	// SendCmd sends a command message to the connected slice.
	SendCmd = ishell.Cmd{
		Name:    "send",
		Aliases: []string{"s"},
		Help:    "COMMAND [VALUE...] (up to 6 float values)",
		Func: MustBeConnected(func(c *ishell.Context) {
			if len(c.Args) < 1 {
				c.Err(fmt.Errorf("COMMAND required"))
				return
			}
			cmd, err := strconv.ParseUint(c.Args[0], 10, 8)
			if err != nil {
				c.Err(fmt.Errorf("invalid COMMAND: %v", err))
				return
			}
			args := c.Args[1:]
			if len(args) > message.DataLen {
				c.Err(fmt.Errorf("at most %d values", message.DataLen))
				return
			}
			data := make([]float32, len(args))
			for i, arg := range args {
				val, err := strconv.ParseFloat(arg, 32)
				if err != nil {
					c.Err(fmt.Errorf("invalid VALUE %q: %v", arg, err))
					return
				}
				data[i] = float32(val)
			}
			conn := ShellFrom(c).Conn
			DoCommand(c, message.New(conn.SliceID, conn.TypeID, uint8(cmd), data...))
		}),
	}

	// WatchCmd prints unsolicited telemetry for a while.
	WatchCmd = ishell.Cmd{
		Name:    "watch",
		Aliases: []string{"w"},
		Help:    "[SECONDS]",
		Func: MustBeConnected(func(c *ishell.Context) {
			seconds := 5
			if len(c.Args) > 0 {
				val, err := strconv.Atoi(c.Args[0])
				if err != nil || val <= 0 {
					c.Err(fmt.Errorf("invalid SECONDS %q", c.Args[0]))
					return
				}
				seconds = val
			}
			s := ShellFrom(c)
			timeout := time.After(time.Duration(seconds) * time.Second)
			for {
				select {
				case m := <-s.Conn.Client.EventChan():
					s.printMsg(c, m)
				case <-timeout:
					return
				case <-s.Conn.Ctx.Done():
					return
				}
			}
		}),
	}
)
