package bridge

import (
	"context"
	"errors"
	"net/rpc"

	"github.com/rs/zerolog"

	eventbus "github.com/hageln/forgext/internal/eventbus"
	events "github.com/hageln/forgext/internal/events"
	"github.com/hageln/forgext/internal/extdb"
)

// scopedHost implements HostServices for one extension: log lines carry the
// extension name and the database handle is the extension's own file.
type scopedHost struct {
	name string
	log  zerolog.Logger
	db   *extdb.DB
}

// NewHostServices builds the capability surface handed to one guest. db may
// be nil when the extension did not request the database capability.
func NewHostServices(name string, log zerolog.Logger, db *extdb.DB) HostServices {
	return &scopedHost{
		name: name,
		log:  log.With().Str("extension", name).Logger(),
		db:   db,
	}
}

func (h *scopedHost) Log(level, message string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	h.log.WithLevel(lvl).Msg(message)
	eventbus.Publish(context.Background(), events.GuestLog{Extension: h.name, Level: lvl.String(), Message: message})
}

func (h *scopedHost) DBQuery(query string, params []any) ([][]any, error) {
	if h.db == nil {
		return nil, errors.New("database capability not granted")
	}
	rows, err := h.db.Query(query, params)
	if err != nil {
		return nil, &RuntimeError{Kind: HostIOError, Extension: h.name, Err: err}
	}
	return rows, nil
}

func (h *scopedHost) DBExecute(query string, params []any) (int64, error) {
	if h.db == nil {
		return 0, errors.New("database capability not granted")
	}
	n, err := h.db.Execute(query, params)
	if err != nil {
		return 0, &RuntimeError{Kind: HostIOError, Extension: h.name, Err: err}
	}
	return n, nil
}

func (h *scopedHost) DBMigrate(script string) error {
	if h.db == nil {
		return errors.New("database capability not granted")
	}
	if err := h.db.Migrate(script); err != nil {
		return &RuntimeError{Kind: HostIOError, Extension: h.name, Err: err}
	}
	return nil
}

// ----- netRPC glue for the guest->host direction -----

type logArgs struct {
	Level   string
	Message string
}

type dbQueryArgs struct {
	Query  string
	Params []any
}

type dbQueryReply struct {
	Rows [][]any
	Err  string
}

type dbExecArgs struct {
	Query  string
	Params []any
}

type dbExecReply struct {
	Affected int64
	Err      string
}

type dbMigrateArgs struct {
	Script string
}

type dbMigrateReply struct {
	Err string
}

// hostServicesServer runs in the host process, serving one guest over a
// broker stream.
type hostServicesServer struct {
	host HostServices
}

func (s *hostServicesServer) Log(args logArgs, _ *struct{}) error {
	s.host.Log(args.Level, args.Message)
	return nil
}

func (s *hostServicesServer) DBQuery(args dbQueryArgs, reply *dbQueryReply) error {
	rows, err := s.host.DBQuery(args.Query, args.Params)
	if err != nil {
		reply.Err = err.Error()
		return nil
	}
	reply.Rows = rows
	return nil
}

func (s *hostServicesServer) DBExecute(args dbExecArgs, reply *dbExecReply) error {
	n, err := s.host.DBExecute(args.Query, args.Params)
	if err != nil {
		reply.Err = err.Error()
		return nil
	}
	reply.Affected = n
	return nil
}

func (s *hostServicesServer) DBMigrate(args dbMigrateArgs, reply *dbMigrateReply) error {
	if err := s.host.DBMigrate(args.Script); err != nil {
		reply.Err = err.Error()
	}
	return nil
}

// hostServicesClient is the guest-process proxy back to the host.
type hostServicesClient struct {
	client *rpc.Client
}

var _ HostServices = (*hostServicesClient)(nil)

func (c *hostServicesClient) Log(level, message string) {
	// Logging is fire-and-forget; a broken host stream cannot be reported
	// anywhere useful from here.
	_ = c.client.Call("Plugin.Log", logArgs{Level: level, Message: message}, &struct{}{})
}

func (c *hostServicesClient) DBQuery(query string, params []any) ([][]any, error) {
	var reply dbQueryReply
	if err := c.client.Call("Plugin.DBQuery", dbQueryArgs{Query: query, Params: params}, &reply); err != nil {
		return nil, err
	}
	if reply.Err != "" {
		return nil, errors.New(reply.Err)
	}
	return reply.Rows, nil
}

func (c *hostServicesClient) DBExecute(query string, params []any) (int64, error) {
	var reply dbExecReply
	if err := c.client.Call("Plugin.DBExecute", dbExecArgs{Query: query, Params: params}, &reply); err != nil {
		return 0, err
	}
	if reply.Err != "" {
		return 0, errors.New(reply.Err)
	}
	return reply.Affected, nil
}

func (c *hostServicesClient) DBMigrate(script string) error {
	var reply dbMigrateReply
	if err := c.client.Call("Plugin.DBMigrate", dbMigrateArgs{Script: script}, &reply); err != nil {
		return err
	}
	if reply.Err != "" {
		return errors.New(reply.Err)
	}
	return nil
}
