package core

import (
	"context"
	"errors"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/0xRadioAc7iv/go-slotkv/internal/protocol"
	"github.com/0xRadioAc7iv/go-slotkv/internal/server"
)

// Node serves one Store over TCP and checkpoints it on an interval.
type Node struct {
	store        *Store
	serverCancel context.CancelFunc
	syncCancel   context.CancelFunc
	wg           sync.WaitGroup
	addr         net.Addr
	log          *zap.Logger

	Store        Options
	Host         string
	ListenerPort int
	PortProbes   int
	SyncInterval time.Duration
}

// Start opens the store and begins serving. It returns once the listener
// is bound, so Addr is valid afterwards.
func (n *Node) Start() error {
	n.log = n.Store.Logger
	if n.log == nil {
		n.log = zap.NewNop()
	}

	st, err := Open(n.Store)
	if err != nil {
		n.log.Error("error opening store", zap.Error(err))
		return err
	}
	n.store = st

	bound := make(chan net.Addr, 1)
	failed := make(chan error, 1)

	ctx, cancel := context.WithCancel(context.Background())
	n.serverCancel = cancel

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		err := server.Start(ctx, server.Config{
			Host:          n.Host,
			Port:          n.ListenerPort,
			MaxPortProbes: n.PortProbes,
			Logger:        n.log,
			OnListen:      func(addr net.Addr) { bound <- addr },
		}, n.commandHandler)
		if err != nil {
			failed <- err
		}
	}()

	select {
	case n.addr = <-bound:
	case err := <-failed:
		cancel()
		n.wg.Wait()
		n.store.Close()
		return err
	}

	if n.SyncInterval > 0 {
		syncCtx, syncCancel := context.WithCancel(context.Background())
		n.syncCancel = syncCancel
		n.wg.Add(1)
		go func() {
			defer n.wg.Done()
			n.syncInterval(syncCtx, n.SyncInterval)
		}()
	}

	n.log.Info("slotkv started", zap.String("store", st.Path()), zap.String("addr", n.addr.String()))
	return nil
}

// Addr is the address the node is listening on.
func (n *Node) Addr() net.Addr {
	return n.addr
}

// Storage exposes the underlying store.
func (n *Node) Storage() *Store {
	return n.store
}

func (n *Node) commandHandler(conn net.Conn) {
	defer conn.Close()

	for {
		command, err := protocol.DecodeCommand(conn)
		if err != nil {
			n.log.Debug("client disconnected", zap.String("remote", conn.RemoteAddr().String()))
			return
		}

		n.reply(conn, n.handleCommand(command))
	}
}

func (n *Node) handleCommand(command *protocol.Command) string {
	cmd := strings.ToLower(command.Cmd)
	ttl := time.Duration(command.TTL) * time.Second

	switch cmd {
	case "ping":
		return protocol.ReplyPong
	case "create":
		return n.handleWrite(command.Key, command.Val, ttl, n.store.Create)
	case "update":
		return n.handleWrite(command.Key, command.Val, ttl, n.store.Update)
	case "read":
		return n.handleRead(command.Key)
	case "delete":
		return n.handleDelete(command.Key)
	case "exists":
		return strconv.FormatBool(n.store.Exists(command.Key))
	case "count":
		return strconv.Itoa(n.store.Len())
	case "list":
		return n.handleList()
	case "help":
		return strings.TrimSpace(helpText)
	default:
		return protocol.ErrorPrefix + "invalid command"
	}
}

func (n *Node) handleWrite(key, raw string, ttl time.Duration, write func(string, Value, time.Duration) error) string {
	value, err := ParseValue([]byte(raw))
	if err != nil {
		return protocol.ErrorPrefix + "value must be a JSON object"
	}

	if err := write(key, value, ttl); err != nil {
		return errorReply(err)
	}
	return protocol.ReplyOK
}

func (n *Node) handleRead(key string) string {
	raw, err := n.store.ReadRaw(key)
	if err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return protocol.ReplyNil
		}
		n.log.Error("error while reading value", zap.String("key", key), zap.Error(err))
		return errorReply(err)
	}
	return string(raw)
}

func (n *Node) handleDelete(key string) string {
	removed, err := n.store.Delete(key)
	if err != nil {
		return errorReply(err)
	}
	if !removed {
		return protocol.ReplyNil
	}
	return protocol.ReplyOK
}

func (n *Node) handleList() string {
	keys := n.store.Keys()
	if len(keys) == 0 {
		return protocol.ReplyNil
	}
	return "----- KEYS START -----\n" + strings.Join(keys, "\n") + "\n----- KEYS END -----"
}

func errorReply(err error) string {
	return protocol.ErrorPrefix + err.Error()
}

func (n *Node) reply(conn net.Conn, msg string) {
	encodedResponse, err := protocol.EncodeResponse(msg)
	if err != nil {
		n.log.Error("error encoding response", zap.Error(err))
		return
	}

	if _, err = conn.Write(encodedResponse); err != nil {
		n.log.Debug("client disconnected", zap.Error(err))
	}
}

func (n *Node) syncInterval(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := n.store.Sync(); err != nil {
				n.log.Error("error syncing store", zap.Error(err))
			}

		case <-ctx.Done():
			return
		}
	}
}

// Stop shuts the listener and sync loop down, then closes the store.
func (n *Node) Stop() error {
	if n.serverCancel != nil {
		n.serverCancel()
	}
	if n.syncCancel != nil {
		n.syncCancel()
	}
	n.wg.Wait()

	if n.store == nil {
		return nil
	}

	err := n.store.Close()
	if err != nil && !errors.Is(err, ErrStoreClosed) {
		n.log.Error("error while closing the store", zap.Error(err))
		return err
	}
	return nil
}

const helpText = `
Available Commands:

PING
  Check if the server is alive.
  Response: PONG!

CREATE <key> <json-object> [ttl]
  Store a new key. Fails if the key already exists.
  ttl is a duration such as 30s or 1h; omitted means never expires.
  Response: ok | ERR <reason>

READ <key>
  Retrieve the value associated with the key.
  Response: value | nil

UPDATE <key> <json-object> [ttl]
  Replace the value and ttl of an existing key.
  Response: ok | ERR <reason>

DELETE <key>
  Delete the key and free its slot.
  Response: ok | nil

EXISTS <key>
  Check if a key exists.
  Response: true | false

COUNT
  Return the total number of keys stored.
  Response: integer

LIST
  List all stored keys.
  Response: list of keys | nil

HELP
  Show this help message.

EXIT (cli only)
  Close the client connection.
`
