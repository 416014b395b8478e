// Package sh provides the interactive shell over a simulated cable.
package sh

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/multilink/pkg/config"
	fx "github.com/robotalks/multilink/pkg/framework"
	"github.com/robotalks/multilink/pkg/hw/sim"
	"github.com/robotalks/multilink/pkg/l0/cable"
)

// Node is a console with its link session.
type Node struct {
	Console *sim.Console
	Session *cable.Session
}

// Status summarizes a node for display.
type Status struct {
	Name        string `json:"name"`
	Position    int    `json:"position"`
	State       string `json:"state"`
	PlayerCount int    `json:"player_count"`
	PlayerID    int    `json:"player_id"`
}

// Status returns the current status.
func (n *Node) Status() Status {
	return Status{
		Name:        n.Console.Name,
		Position:    n.Console.Position(),
		State:       n.Session.State().String(),
		PlayerCount: n.Session.PlayerCount(),
		PlayerID:    n.Session.CurrentPlayerID(),
	}
}

// Shell provides ishell backed interactive shell.
type Shell struct {
	Interactive bool
	OutputJSON  bool
	Realtime    bool

	Shell  *ishell.Shell
	Config *config.Config
	Cable  *sim.Cable
	Clock  *sim.Clock
	Nodes  []*Node

	cancel func()
}

const (
	shellKey = "$shell"
	prompt   = "link > "
)

var (
	// flags

	evalOnly   bool
	outputJSON bool
	realtime   bool

	// commands
	commands = []*ishell.Cmd{
		&StatusCmd,
		&TickCmd,
	}
)

func init() {
	flag.BoolVar(&evalOnly, "e", evalOnly, "Evaluation only, no interactive shell.")
	flag.BoolVar(&outputJSON, "json", outputJSON, "Print output in JSON.")
	flag.BoolVar(&realtime, "realtime", realtime, "Drive the emulated clock from the wall clock.")
}

// AddCmds is used by other commands providers during init func.
func AddCmds(cmds ...*ishell.Cmd) {
	commands = append(commands, cmds...)
}

// New creates a new shell with the configured number of consoles plugged
// in. Sessions start inactive.
func New(conf *config.Config) (*Shell, error) {
	s := &Shell{
		Interactive: !evalOnly,
		OutputJSON:  outputJSON,
		Realtime:    realtime,

		Shell:  ishell.New(),
		Config: conf,
		Cable:  sim.NewCable(),
	}
	s.Clock = sim.NewClock(s.Cable)
	s.Clock.Resolution = conf.Sim.Resolution()
	for i := 0; i < conf.Sim.Consoles; i++ {
		node, err := s.AddNode(fmt.Sprintf("p%d", i))
		if err != nil {
			return nil, err
		}
		if _, err := s.Cable.Plug(node.Console); err != nil {
			return nil, err
		}
	}
	s.Shell.Set(shellKey, s)
	s.Shell.SetPrompt(prompt)
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	return s, nil
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// AddNode creates an unplugged console with a session.
func (s *Shell) AddNode(name string) (*Node, error) {
	con := s.Cable.NewConsole(name)
	con.LineDuration = s.Config.Sim.LineDuration()
	session, err := cable.New(con, con, s.Config.Session.CableConfig())
	if err != nil {
		return nil, err
	}
	session.Register(con.IRQ)
	node := &Node{Console: con, Session: session}
	s.Nodes = append(s.Nodes, node)
	return node, nil
}

// Node finds a node by name or index.
func (s *Shell) Node(ref string) (*Node, error) {
	for _, n := range s.Nodes {
		if n.Console.Name == ref {
			return n, nil
		}
	}
	if index, err := strconv.Atoi(ref); err == nil && index >= 0 && index < len(s.Nodes) {
		return s.Nodes[index], nil
	}
	return nil, fmt.Errorf("unknown console %q", ref)
}

// NodesOf resolves the arguments to nodes, all nodes when args is empty.
func (s *Shell) NodesOf(args []string) ([]*Node, error) {
	if len(args) == 0 {
		return s.Nodes, nil
	}
	nodes := make([]*Node, 0, len(args))
	for _, arg := range args {
		n, err := s.Node(arg)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}

// Print prints v as JSON in JSON mode, otherwise using text.
func (s *Shell) Print(c *ishell.Context, v interface{}, text func() string) {
	if s.OutputJSON {
		out, err := json.Marshal(v)
		if err != nil {
			c.Err(err)
			return
		}
		c.Println(string(out))
		return
	}
	c.Println(text())
}

// Advance moves the emulated clock, unless it follows the wall clock.
func (s *Shell) Advance(d time.Duration) (int, error) {
	if s.cancel != nil {
		return 0, fmt.Errorf("clock is running in realtime")
	}
	return s.Clock.Advance(d), nil
}

// Run runs the shell.
func (s *Shell) Run(args ...string) {
	if s.Realtime {
		ctx, cancel := context.WithCancel(context.Background())
		s.cancel = cancel
		runner := fx.NewRunnerWith(ctx).Go(fx.NamedRun("clock", s.Clock))
		defer runner.Wait()
		defer cancel()
	}

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

var (
	// StatusCmd prints the state of every console.
	StatusCmd = ishell.Cmd{
		Name:    "status",
		Aliases: []string{"st"},
		Help:    "[CONSOLE...]",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			nodes, err := s.NodesOf(c.Args)
			if err != nil {
				c.Err(err)
				return
			}
			list := make([]Status, 0, len(nodes))
			for _, n := range nodes {
				list = append(list, n.Status())
			}
			s.Print(c, list, func() string {
				out := ""
				for n, st := range list {
					if n > 0 {
						out += "\n"
					}
					out += fmt.Sprintf("%s pos=%d %s players=%d id=%d",
						st.Name, st.Position, st.State, st.PlayerCount, st.PlayerID)
				}
				return out
			})
		},
	}

	// TickCmd advances the emulated clock.
	TickCmd = ishell.Cmd{
		Name:    "tick",
		Aliases: []string{"t"},
		Help:    "[DURATION]",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			d := sim.FrameDuration
			if len(c.Args) > 0 {
				var err error
				if d, err = time.ParseDuration(c.Args[0]); err != nil {
					c.Err(fmt.Errorf("Invalid DURATION: %v", err))
					return
				}
			}
			fired, err := s.Advance(d)
			if err != nil {
				c.Err(err)
				return
			}
			s.Print(c, map[string]interface{}{"now": s.Clock.Now().String(), "interrupts": fired}, func() string {
				return fmt.Sprintf("%s: %d interrupts", s.Clock.Now(), fired)
			})
		},
	}
)

// Main is a helper to provide a single call in main.
func Main() {
	flag.Parse()
	conf, err := config.FromFlags()
	if err != nil {
		log.Fatalln(err)
	}
	s, err := New(conf)
	if err != nil {
		log.Fatalln(err)
	}
	s.Run(flag.Args()...)
}
