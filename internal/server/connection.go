package server

import (
	"context"
	"net"

	"github.com/muonblog/mycoserve/internal/errors"
	"github.com/muonblog/mycoserve/internal/logging"
)

// handleConnection reads one request, routes it, writes the response and
// submits the access record. The connection is always closed afterwards
// and failures stay local to it.
func (s *Server) handleConnection(ctx context.Context, workerID int, j job) {
	conn := j.conn
	defer conn.Close()

	// A read error ends the head early; what was read is still answered.
	req, err := s.parser.Parse(conn)
	if err != nil {
		rerr := errors.WrapNetwork(err, "read request head")
		s.logger.Debug(ctx, "Request head cut short",
			append(errors.Fields(rerr), "remote", remoteAddr(conn), "error", err.Error())...)
	}

	snap := s.tally.Observe(req.IP)
	resp := s.router.Route(ctx, req)

	if _, err := resp.WriteTo(conn); err != nil {
		werr := errors.WrapNetwork(err, "write response")
		s.logger.Warn(ctx, werr, "Response write failed",
			"remote", remoteAddr(conn),
			"worker", workerID)
	}

	ev := logging.LogEvent{
		Time:       j.accepted,
		Worker:     workerID,
		IP:         req.IP,
		Host:       req.HostValue,
		Path:       req.Path,
		Referer:    req.Referer,
		UserAgent:  req.UserAgent,
		Status:     resp.Status.String(),
		Length:     len(resp.Body),
		Turnaround: s.now().Sub(j.accepted),
		Tally:      snap,
	}
	if !s.sink.Submit(ev) {
		s.logger.Debug(ctx, "Access record dropped", "worker", workerID)
	}
}

func remoteAddr(conn net.Conn) string {
	if a := conn.RemoteAddr(); a != nil {
		return a.String()
	}
	return ""
}
