package boot

import (
	"fmt"
	"os"
	"time"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/multilink/pkg/cli/sh"
	"github.com/robotalks/multilink/pkg/hw"
	"github.com/robotalks/multilink/pkg/hw/sim"
	"github.com/robotalks/multilink/pkg/l0/multiboot"
)

// DefaultTimeout bounds a boot transfer started from the shell.
const DefaultTimeout = 10 * time.Second

// DemoImage returns a valid image of the given size filled with a pattern.
func DemoImage(size int) []byte {
	img := make([]byte, size)
	for i := range img {
		img[i] = byte(i * 7)
	}
	return img
}

// Boot sends image from the console at position 0 to every other plugged
// console, which runs boot client firmware for the duration.
func Boot(s *sh.Shell, image []byte, timeout time.Duration, progress multiboot.ProgressCallback) (multiboot.Result, error) {
	consoles := s.Cable.Consoles()
	if len(consoles) == 0 {
		return multiboot.Canceled, fmt.Errorf("no console plugged")
	}
	for _, n := range s.Nodes {
		if n.Session.IsActive() {
			return multiboot.Canceled, fmt.Errorf("%s: session active, deactivate first", n.Console.Name)
		}
	}
	primary := consoles[0]
	clients := make([]*sim.BootClient, 0, len(consoles)-1)
	for n, con := range consoles[1:] {
		clients = append(clients, sim.NewBootClient(con, int64(n+1)))
	}
	defer func() {
		for _, con := range consoles[1:] {
			con.SetResponder(nil, hw.NoData)
		}
	}()

	opts := append(s.Config.Multiboot.Options(), multiboot.WithProgress(progress))
	sender := multiboot.New(primary, primary, primary, opts...)
	deadline := time.Now().Add(timeout)
	result := sender.Send(image, len(image), func() bool {
		return time.Now().After(deadline)
	})
	if result == multiboot.HandshakeFailure {
		return result, sender.LastError()
	}
	booted := 0
	for _, c := range clients {
		if c.Booted() {
			booted++
		}
	}
	if result == multiboot.Success && booted == 0 {
		return result, fmt.Errorf("no client booted")
	}
	return result, result.Err()
}

var (
	// BootCmd sends a boot image over the cable.
	BootCmd = ishell.Cmd{
		Name:    "boot",
		Aliases: []string{"b"},
		Help:    "[IMAGE_FILE]",
		Func: func(c *ishell.Context) {
			s := sh.ShellFrom(c)
			image := DemoImage(0x400)
			if len(c.Args) > 0 {
				data, err := os.ReadFile(c.Args[0])
				if err != nil {
					c.Err(err)
					return
				}
				image = data
			}
			var last multiboot.Phase = -1
			result, err := Boot(s, image, DefaultTimeout, func(p multiboot.Progress) {
				if s.Interactive && !s.OutputJSON && p.Phase != last {
					c.Printf("%-18s %3d%% clients=%04b\n", p.Phase, p.Percentage, p.Clients)
					last = p.Phase
				}
			})
			if err != nil {
				c.Err(err)
				return
			}
			s.Print(c, map[string]string{"result": result.String()}, result.String)
		},
	}
)

func init() {
	sh.AddCmds(&BootCmd)
}
