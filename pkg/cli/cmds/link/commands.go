package link

import (
	"fmt"
	"strconv"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/multilink/pkg/cli/sh"
	"github.com/robotalks/multilink/pkg/hw"
)

func parseWord(s string) (uint16, error) {
	v, err := strconv.ParseUint(s, 0, 16)
	if err != nil {
		return 0, err
	}
	return uint16(v), nil
}

var (
	// PlugCmd plugs a console into the cable, creating it when unknown.
	PlugCmd = ishell.Cmd{
		Name: "plug",
		Help: "CONSOLE",
		Func: func(c *ishell.Context) {
			if len(c.Args) < 1 {
				c.Err(fmt.Errorf("CONSOLE required"))
				return
			}
			s := sh.ShellFrom(c)
			node, err := s.Node(c.Args[0])
			if err != nil {
				if node, err = s.AddNode(c.Args[0]); err != nil {
					c.Err(err)
					return
				}
			}
			pos, err := s.Cable.Plug(node.Console)
			if err != nil {
				c.Err(err)
				return
			}
			c.Printf("%s plugged at %d\n", node.Console.Name, pos)
		},
	}

	// UnplugCmd removes a console from the cable.
	UnplugCmd = ishell.Cmd{
		Name: "unplug",
		Help: "CONSOLE",
		Func: func(c *ishell.Context) {
			if len(c.Args) < 1 {
				c.Err(fmt.Errorf("CONSOLE required"))
				return
			}
			s := sh.ShellFrom(c)
			node, err := s.Node(c.Args[0])
			if err != nil {
				c.Err(err)
				return
			}
			s.Cable.Unplug(node.Console)
		},
	}

	// ActivateCmd activates link sessions.
	ActivateCmd = ishell.Cmd{
		Name:    "activate",
		Aliases: []string{"on"},
		Help:    "[CONSOLE...]",
		Func: func(c *ishell.Context) {
			nodes, err := sh.ShellFrom(c).NodesOf(c.Args)
			if err != nil {
				c.Err(err)
				return
			}
			for _, n := range nodes {
				n.Session.Activate()
			}
		},
	}

	// DeactivateCmd deactivates link sessions.
	DeactivateCmd = ishell.Cmd{
		Name:    "deactivate",
		Aliases: []string{"off"},
		Help:    "[CONSOLE...]",
		Func: func(c *ishell.Context) {
			nodes, err := sh.ShellFrom(c).NodesOf(c.Args)
			if err != nil {
				c.Err(err)
				return
			}
			for _, n := range nodes {
				n.Session.Deactivate()
			}
		},
	}

	// SendCmd queues words on a session.
	SendCmd = ishell.Cmd{
		Name:    "send",
		Aliases: []string{"s"},
		Help:    "CONSOLE VALUE...",
		Func: func(c *ishell.Context) {
			if len(c.Args) < 2 {
				c.Err(fmt.Errorf("CONSOLE and VALUE required"))
				return
			}
			node, err := sh.ShellFrom(c).Node(c.Args[0])
			if err != nil {
				c.Err(err)
				return
			}
			for _, arg := range c.Args[1:] {
				v, err := parseWord(arg)
				if err != nil {
					c.Err(fmt.Errorf("Invalid VALUE %q: %v", arg, err))
					return
				}
				if !node.Session.Send(v) {
					c.Err(fmt.Errorf("0x%04x not queued", v))
					return
				}
			}
		},
	}

	// ReadCmd drains the messages received by a session.
	ReadCmd = ishell.Cmd{
		Name:    "read",
		Aliases: []string{"r"},
		Help:    "CONSOLE [PEER]",
		Func: func(c *ishell.Context) {
			if len(c.Args) < 1 {
				c.Err(fmt.Errorf("CONSOLE required"))
				return
			}
			s := sh.ShellFrom(c)
			node, err := s.Node(c.Args[0])
			if err != nil {
				c.Err(err)
				return
			}
			peers := []int{0, 1, 2, 3}
			if len(c.Args) > 1 {
				peer, err := strconv.Atoi(c.Args[1])
				if err != nil || peer < 0 || peer >= hw.MaxPlayers {
					c.Err(fmt.Errorf("Invalid PEER %q", c.Args[1]))
					return
				}
				peers = []int{peer}
			}
			received := make(map[string][]uint16)
			for _, peer := range peers {
				for node.Session.HasMessage(peer) {
					key := strconv.Itoa(peer)
					received[key] = append(received[key], node.Session.ReadMessage(peer))
				}
			}
			s.Print(c, received, func() string {
				out := ""
				for _, peer := range peers {
					for _, v := range received[strconv.Itoa(peer)] {
						out += fmt.Sprintf("%d: 0x%04x\n", peer, v)
					}
				}
				if overflow := node.Session.DidQueueOverflow(true); overflow {
					out += "queue overflowed\n"
				}
				return out
			})
		},
	}
)

func init() {
	sh.AddCmds(
		&PlugCmd,
		&UnplugCmd,
		&ActivateCmd,
		&DeactivateCmd,
		&SendCmd,
		&ReadCmd,
	)
}
