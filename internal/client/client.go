// Package client implements the interactive terminal client for the
// bank server: one TCP connection, a background receiver that frames
// server responses, and a line-oriented command loop.
package client

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"sync/atomic"
)

const menu = "\n=== Secure Bank System Client ===\n" +
	"Type commands to interact with the bank system.\n" +
	"Type 'HELP' for available commands.\n" +
	"Type 'EXIT' to quit.\n" +
	"=================================="

// Client is a connected bank client.
type Client struct {
	conn      net.Conn
	connected atomic.Bool
}

// Dial connects to the bank server at host:port.
func Dial(host string, port int) (*Client, error) {
	conn, err := net.Dial("tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return nil, fmt.Errorf("client: connect %s:%d: %w", host, port, err)
	}

	c := &Client{conn: conn}
	c.connected.Store(true)
	return c, nil
}

// Connected reports whether the connection is still up.
func (c *Client) Connected() bool {
	return c.connected.Load()
}

// Send writes one command line to the server.
func (c *Client) Send(command string) error {
	if !c.connected.Load() {
		return net.ErrClosed
	}
	if _, err := c.conn.Write([]byte(command + "\n")); err != nil {
		c.connected.Store(false)
		return err
	}
	return nil
}

// Close logs the session out and drops the connection. Safe to call
// more than once.
func (c *Client) Close() error {
	if !c.connected.CompareAndSwap(true, false) {
		return nil
	}
	// Best effort; the server also logs sessions out on disconnect.
	c.conn.Write([]byte("LOGOUT\n"))
	return c.conn.Close()
}

// Run prints the menu, spawns the receiver, and loops reading command
// lines from in until EXIT/QUIT, EOF, or the connection drops.
func (c *Client) Run(in io.Reader, out io.Writer) error {
	go c.receiveLoop(out)

	fmt.Fprintln(out, menu)
	fmt.Fprint(out, "> ")

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			fmt.Fprint(out, "> ")
			continue
		}
		if input == "EXIT" || input == "QUIT" {
			break
		}
		if err := c.Send(input); err != nil {
			fmt.Fprintln(out, "Connection to server lost.")
			break
		}
	}

	return c.Close()
}

// receiveLoop prints every server response inside a frame and re-issues
// the prompt, matching the interleaved-output convention of a terminal
// client with an asynchronous receiver.
func (c *Client) receiveLoop(out io.Writer) {
	buf := make([]byte, 4096)
	for c.connected.Load() {
		n, err := c.conn.Read(buf)
		if err != nil {
			c.connected.Store(false)
			return
		}
		fmt.Fprintf(out, "\n=== Server Response ===\n%s\n=======================\n> ", buf[:n])
	}
}
