package bridge

import (
	"fmt"
	"net/rpc"

	"github.com/hashicorp/go-plugin"

	"github.com/hageln/forgext/internal/schema"
)

// guestRPC is the host-side proxy for one extension subprocess.
type guestRPC struct {
	client *rpc.Client
	broker *plugin.MuxBroker
}

var _ Guest = (*guestRPC)(nil)

func (g *guestRPC) GetAPIInfo() (APIInfo, error) {
	var reply apiInfoReply
	if err := g.client.Call("Plugin.GetAPIInfo", struct{}{}, &reply); err != nil {
		return APIInfo{}, err
	}
	return reply.Info, nil
}

// Init starts the host capability service on a broker stream and hands its
// ID to the guest along with the config.
func (g *guestRPC) Init(cfg InitConfig, host HostServices) error {
	id := g.broker.NextId()
	go g.broker.AcceptAndServe(id, &hostServicesServer{host: host})
	cfg.HostBrokerID = id

	var reply initReply
	if err := g.client.Call("Plugin.Init", initArgs{Config: cfg}, &reply); err != nil {
		return err
	}
	if reply.Err != "" {
		return &GuestError{Message: reply.Err}
	}
	return nil
}

func (g *guestRPC) GetSchema() (*schema.Fragment, error) {
	var reply schemaReply
	if err := g.client.Call("Plugin.GetSchema", struct{}{}, &reply); err != nil {
		return nil, err
	}
	return reply.Fragment, nil
}

func (g *guestRPC) Migrate(dbPath string) error {
	var reply migrateReply
	if err := g.client.Call("Plugin.Migrate", migrateArgs{DBPath: dbPath}, &reply); err != nil {
		return err
	}
	if reply.Err != "" {
		return &GuestError{Message: reply.Err}
	}
	return nil
}

func (g *guestRPC) ResolveField(field string, argsJSON []byte) ([]byte, error) {
	var reply resolveReply
	if err := g.client.Call("Plugin.ResolveField", resolveArgs{Field: field, ArgsJSON: argsJSON}, &reply); err != nil {
		return nil, err
	}
	if reply.Err != "" {
		return nil, &GuestError{Message: reply.Err}
	}
	return reply.JSON, nil
}

// guestRPCServer runs inside the extension binary and serves the guest
// implementation over netRPC.
type guestRPCServer struct {
	impl   GuestHandler
	broker *plugin.MuxBroker
}

func (s *guestRPCServer) GetAPIInfo(_ struct{}, reply *apiInfoReply) error {
	reply.Info = s.impl.GetAPIInfo()
	return nil
}

func (s *guestRPCServer) Init(args initArgs, reply *initReply) error {
	conn, err := s.broker.Dial(args.Config.HostBrokerID)
	if err != nil {
		return fmt.Errorf("dial host services: %w", err)
	}
	host := &hostServicesClient{client: rpc.NewClient(conn)}
	if err := s.impl.Init(args.Config, host); err != nil {
		reply.Err = err.Error()
	}
	return nil
}

func (s *guestRPCServer) GetSchema(_ struct{}, reply *schemaReply) error {
	reply.Fragment = s.impl.GetSchema()
	return nil
}

func (s *guestRPCServer) Migrate(args migrateArgs, reply *migrateReply) error {
	if err := s.impl.Migrate(args.DBPath); err != nil {
		reply.Err = err.Error()
	}
	return nil
}

func (s *guestRPCServer) ResolveField(args resolveArgs, reply *resolveReply) error {
	result, err := s.impl.ResolveField(args.Field, args.ArgsJSON)
	if err != nil {
		reply.Err = err.Error()
		return nil
	}
	reply.JSON = result
	return nil
}
