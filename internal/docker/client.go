// Package docker is a minimal client for the Docker Engine API over the
// local unix socket. It covers only what the monitor and the push streams
// consume: container listing/inspection, stats (one-shot and streaming),
// the lifecycle event feed, and log tailing.
package docker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

type Client struct {
	// unary has a request timeout; stream must not, long-lived subscriptions
	// (events, follow logs, streaming stats) stay open indefinitely.
	unary  *http.Client
	stream *http.Client
}

type ContainerSummary struct {
	ID      string            `json:"Id"`
	Names   []string          `json:"Names"`
	Image   string            `json:"Image"`
	State   string            `json:"State"`
	Status  string            `json:"Status"`
	Labels  map[string]string `json:"Labels"`
	Created int64             `json:"Created"`
}

// Name returns the primary display name without the leading slash.
func (c ContainerSummary) Name() string {
	if len(c.Names) > 0 {
		return strings.TrimPrefix(c.Names[0], "/")
	}
	if len(c.ID) >= 12 {
		return c.ID[:12]
	}
	return c.ID
}

type ContainerInspect struct {
	ID    string `json:"Id"`
	Name  string `json:"Name"`
	State struct {
		Status    string `json:"Status"`
		Running   bool   `json:"Running"`
		StartedAt string `json:"StartedAt"`
	} `json:"State"`
}

// Stats is one engine stats payload. A single non-streaming read carries the
// current sample (cpu_stats) and the immediately preceding one (precpu_stats),
// which is what the normalizer needs to compute deltas. All nested fields
// decode to zero values when absent.
type Stats struct {
	Read     string `json:"read"`
	CPUStats struct {
		CPUUsage struct {
			TotalUsage  uint64   `json:"total_usage"`
			PercpuUsage []uint64 `json:"percpu_usage"`
		} `json:"cpu_usage"`
		SystemCPUUsage uint64 `json:"system_cpu_usage"`
		OnlineCPUs     uint64 `json:"online_cpus"`
	} `json:"cpu_stats"`
	PreCPUStats struct {
		CPUUsage struct {
			TotalUsage uint64 `json:"total_usage"`
		} `json:"cpu_usage"`
		SystemCPUUsage uint64 `json:"system_cpu_usage"`
	} `json:"precpu_stats"`
	MemoryStats struct {
		Usage uint64 `json:"usage"`
		Limit uint64 `json:"limit"`
	} `json:"memory_stats"`
	Networks map[string]struct {
		RxBytes uint64 `json:"rx_bytes"`
		TxBytes uint64 `json:"tx_bytes"`
	} `json:"networks"`
	BlkioStats struct {
		IoServiceBytesRecursive []BlkioEntry `json:"io_service_bytes_recursive"`
	} `json:"blkio_stats"`
}

type BlkioEntry struct {
	Op    string `json:"op"`
	Value uint64 `json:"value"`
}

// Event is one entry from the engine's lifecycle feed. Older engines report
// the action in "status", newer ones in "Action"; both are decoded.
type Event struct {
	Type   string `json:"Type"`
	Action string `json:"Action"`
	Status string `json:"status"`
	Actor  struct {
		ID         string            `json:"ID"`
		Attributes map[string]string `json:"Attributes"`
	} `json:"Actor"`
}

// ContainerName resolves the display name for an event's subject.
func (e Event) ContainerName() string {
	if n := e.Actor.Attributes["name"]; n != "" {
		return n
	}
	if len(e.Actor.ID) >= 12 {
		return e.Actor.ID[:12]
	}
	return e.Actor.ID
}

// WhatHappened returns the lifecycle action regardless of engine version.
func (e Event) WhatHappened() string {
	if e.Action != "" {
		return e.Action
	}
	return e.Status
}

func NewClient(socketPath string) *Client {
	dialer := &net.Dialer{Timeout: 3 * time.Second}
	transport := &http.Transport{
		DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			return dialer.DialContext(ctx, "unix", socketPath)
		},
	}
	return &Client{
		unary:  &http.Client{Transport: transport, Timeout: 30 * time.Second},
		stream: &http.Client{Transport: transport},
	}
}

func (c *Client) Ping(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodGet, "/_ping")
	return err
}

// ListContainers returns running containers, or all containers when all is
// set.
func (c *Client) ListContainers(ctx context.Context, all bool) ([]ContainerSummary, error) {
	p := "/containers/json"
	if all {
		p += "?all=1"
	}
	b, err := c.do(ctx, http.MethodGet, p)
	if err != nil {
		return nil, err
	}
	var out []ContainerSummary
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) InspectContainer(ctx context.Context, id string) (ContainerInspect, error) {
	b, err := c.do(ctx, http.MethodGet, "/containers/"+id+"/json")
	if err != nil {
		return ContainerInspect{}, err
	}
	var out ContainerInspect
	if err := json.Unmarshal(b, &out); err != nil {
		return ContainerInspect{}, err
	}
	return out, nil
}

// Stats fetches one non-streaming stats snapshot. The payload includes the
// previous sample, so one call is enough for delta-based normalization.
func (c *Client) Stats(ctx context.Context, id string) (Stats, error) {
	b, err := c.do(ctx, http.MethodGet, "/containers/"+id+"/stats?stream=false")
	if err != nil {
		return Stats{}, err
	}
	var out Stats
	if err := json.Unmarshal(b, &out); err != nil {
		return Stats{}, err
	}
	return out, nil
}

// StatsStream opens a continuous stats subscription. The engine pushes one
// JSON document per line at its own cadence until the reader is closed.
func (c *Client) StatsStream(ctx context.Context, id string) (io.ReadCloser, error) {
	return c.open(ctx, "/containers/"+id+"/stats?stream=true")
}

// Events opens the engine's lifecycle event feed, one JSON document per line.
func (c *Client) Events(ctx context.Context) (io.ReadCloser, error) {
	return c.open(ctx, "/events")
}

// Logs fetches container logs. since is a unix timestamp in seconds and may
// carry a fractional part; tail bounds the backfill when since is zero.
func (c *Client) Logs(ctx context.Context, id string, since float64, tail int, follow bool) (io.ReadCloser, error) {
	q := url.Values{}
	q.Set("stdout", "1")
	q.Set("stderr", "1")
	if follow {
		q.Set("follow", "1")
	}
	if since > 0 {
		q.Set("since", strconv.FormatFloat(since, 'f', 6, 64))
	}
	if tail > 0 {
		q.Set("tail", strconv.Itoa(tail))
	}
	return c.open(ctx, "/containers/"+id+"/logs?"+q.Encode())
}

// open issues a streaming GET and hands the body to the caller.
func (c *Client) open(ctx context.Context, p string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://unix"+p, nil)
	if err != nil {
		return nil, err
	}
	res, err := c.stream.Do(req)
	if err != nil {
		return nil, err
	}
	if res.StatusCode >= 300 {
		defer res.Body.Close()
		b, _ := io.ReadAll(io.LimitReader(res.Body, 2048))
		return nil, fmt.Errorf("docker api GET %s status %d: %s", p, res.StatusCode, strings.TrimSpace(string(b)))
	}
	return res.Body, nil
}

func (c *Client) do(ctx context.Context, method, p string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, "http://unix"+p, nil)
	if err != nil {
		return nil, err
	}
	res, err := c.unary.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	b, err := io.ReadAll(io.LimitReader(res.Body, 10<<20))
	if err != nil {
		return nil, err
	}
	if res.StatusCode >= 300 {
		msg := strings.TrimSpace(string(bytes.TrimSpace(b)))
		if msg == "" {
			msg = res.Status
		}
		return nil, fmt.Errorf("docker api %s %s failed: %s", method, p, msg)
	}
	return b, nil
}
