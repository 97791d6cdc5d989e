// Package shell implements a minimal line-command dispatcher used to
// exercise the telnet package's negotiated options end to end. It is a
// deliberately small stand-in for a full command shell: quit, set,
// nodebug, naws, zmp ping, compress, echo, and invisible/visible, driving
// exactly the Connection surface a collaborator is expected to use.
package shell

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/mctsd/mcts/telnet"
)

// Shell is a telnet.LineHandler that interprets each line as a command.
type Shell struct {
	conn *telnet.Connection
}

// New returns a Shell bound to c, ready to be assigned to c.OnLine.
func New(c *telnet.Connection) *Shell {
	return &Shell{conn: c}
}

// HandleLine implements telnet.LineHandler.
func (s *Shell) HandleLine(c *telnet.Connection, line []byte) {
	fields := strings.Fields(string(bytes.TrimSpace(line)))
	if len(fields) == 0 {
		s.prompt()
		return
	}
	switch strings.ToLower(fields[0]) {
	case "quit":
		s.reply("goodbye.\r\n")
		c.Quitting = true
		return
	case "set":
		s.cmdSet(fields[1:])
	case "nodebug":
		c.SetVar("nodebug", "1")
		s.reply("debug tracing disabled.\r\n")
	case "debug":
		c.UnsetVar("nodebug")
		s.reply("debug tracing enabled.\r\n")
	case "invisible":
		c.SetInvisible()
		s.reply("echo suppressed.\r\n")
	case "visible":
		c.SetVisible()
		s.reply("echo restored.\r\n")
	case "compress":
		if len(fields) > 1 && fields[1] == "off" {
			c.DisableUs(telnet.OptCompress2)
		} else {
			c.EnableUs(telnet.OptCompress2)
		}
	case "naws":
		s.reply(fmt.Sprintf("window size: %dx%d\r\n", c.Width, c.Height))
	case "charset":
		name := c.Charset
		if name == "" {
			name = "(none negotiated)"
		}
		s.reply(fmt.Sprintf("charset: %s\r\n", name))
	case "termtype":
		name := c.TermType
		if name == "" {
			name = "(none reported)"
		}
		s.reply(fmt.Sprintf("terminal type: %s\r\n", name))
	case "zmp":
		s.cmdZMP(fields[1:])
	case "echo":
		s.reply(strings.Join(fields[1:], " ") + "\r\n")
	default:
		s.reply(fmt.Sprintf("unknown command: %s\r\n", fields[0]))
	}
	s.prompt()
}

func (s *Shell) cmdSet(args []string) {
	if len(args) < 2 {
		s.reply("usage: set <key> <value>\r\n")
		return
	}
	value := strings.Join(args[1:], " ")
	s.conn.SetVar(args[0], value)
	s.reply(fmt.Sprintf("%s = %s\r\n", args[0], value))
}

func (s *Shell) cmdZMP(args []string) {
	if len(args) == 1 && args[0] == "ping" {
		s.conn.SendZMPPing()
		s.reply("sent zmp.ping\r\n")
		return
	}
	s.reply("usage: zmp ping\r\n")
}

func (s *Shell) reply(msg string) {
	s.conn.WritePlain([]byte(msg))
}

func (s *Shell) prompt() {
	s.conn.Prompt([]byte("> "))
}
