package runner

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/encoding"
)

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

// serviceName and methodName name the single RPC the sandbox runner
// exposes; there is no .proto file behind them (see jsonCodec), so the
// client invokes the method directly via grpc.ClientConn.Invoke the same
// way generated stub code does under the hood.
const (
	serviceName = "rfsnkernel.runner.SandboxRunner"
	methodName  = "RunTests"
	fullMethod  = "/" + serviceName + "/" + methodName
)

// runTestsRequest/runTestsResponse are the wire shape for the RunTests RPC.
type runTestsRequest struct {
	WorkspacePath string   `json:"workspace_path"`
	Argv          []string `json:"argv"`
	WallSeconds   int      `json:"wall_seconds"`
	MemBytes      int64    `json:"mem_bytes"`
	CPUQuota      float64  `json:"cpu_quota"`
}

type runTestsResponse struct {
	ExitCode   int    `json:"exit_code"`
	Stdout     string `json:"stdout"`
	Stderr     string `json:"stderr"`
	DurationMS int64  `json:"duration_ms"`
}

// GRPCClient talks to an out-of-process sandbox runner providing network
// isolation, a read-only root filesystem, and a writable workspace bind
// mount (spec.md §4.2/§6, container backend). It is the Controller's
// adaptation of the teacher's CodecClient wrapping pattern
// (internal/codec/client.go): a thin typed wrapper over a
// grpc.NewClient(addr, grpc.WithTransportCredentials(...)) connection,
// constructed only from an address via NewGRPCClient.
type GRPCClient struct {
	conn *grpc.ClientConn
}

// NewGRPCClient dials the sandbox runner at addr. The connection carries no
// transport credentials beyond insecure.NewCredentials() because the
// sandbox runner is expected to live on a loopback or private network next
// to the kernel, matching the teacher's own codec client.
func NewGRPCClient(addr string) (*GRPCClient, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("runner: dial %s: %w", addr, err)
	}
	return &GRPCClient{conn: conn}, nil
}

// Close shuts down the gRPC connection.
func (c *GRPCClient) Close() error { return c.conn.Close() }

func (c *GRPCClient) Run(ctx context.Context, workspacePath string, argv []string, limits Limits) (Result, error) {
	req := &runTestsRequest{
		WorkspacePath: workspacePath,
		Argv:          argv,
		WallSeconds:   limits.WallSeconds,
		MemBytes:      limits.MemBytes,
		CPUQuota:      limits.CPUQuota,
	}
	resp := &runTestsResponse{}

	if err := c.conn.Invoke(ctx, fullMethod, req, resp, grpc.CallContentSubtype(jsonCodec{}.Name())); err != nil {
		return Result{}, fmt.Errorf("runner: RunTests rpc: %w", err)
	}

	return Result{
		ExitCode:   resp.ExitCode,
		Stdout:     resp.Stdout,
		Stderr:     resp.Stderr,
		DurationMS: resp.DurationMS,
	}, nil
}

// #region server

// SandboxHandler is implemented by the out-of-process sandbox; RegisterServer
// wires it onto a *grpc.Server using the same json codec the client uses.
// The kernel itself never runs this side — it is here so a sandbox
// implementation (e.g. a Docker-backed runner per spec.md §4.2's "when
// configured, inside a container" clause) can be wired against the same
// contract the client expects, without either side depending on generated
// protobuf stubs.
type SandboxHandler interface {
	RunTests(ctx context.Context, workspacePath string, argv []string, limits Limits) (Result, error)
}

// RegisterServer attaches handler to srv under the RunTests RPC name.
func RegisterServer(srv *grpc.Server, handler SandboxHandler) {
	srv.RegisterService(&grpc.ServiceDesc{
		ServiceName: serviceName,
		HandlerType: (*SandboxHandler)(nil),
		Methods: []grpc.MethodDesc{
			{
				MethodName: methodName,
				Handler: func(srvIface interface{}, ctx context.Context, dec func(interface{}) error, _ grpc.UnaryServerInterceptor) (interface{}, error) {
					h := srvIface.(SandboxHandler)
					req := &runTestsRequest{}
					if err := dec(req); err != nil {
						return nil, err
					}
					res, err := h.RunTests(ctx, req.WorkspacePath, req.Argv, Limits{
						WallSeconds: req.WallSeconds,
						MemBytes:    req.MemBytes,
						CPUQuota:    req.CPUQuota,
					})
					if err != nil {
						return nil, err
					}
					return &runTestsResponse{
						ExitCode:   res.ExitCode,
						Stdout:     res.Stdout,
						Stderr:     res.Stderr,
						DurationMS: res.DurationMS,
					}, nil
				},
			},
		},
		Metadata: "runner.proto",
	}, handler)
}

// #endregion server
