package ipc

import (
	"context"
	"fmt"
	"log/slog"

	"headphones/internal/api"
	"headphones/internal/daemon"
	"headphones/internal/logging"
	"headphones/internal/snatch"
)

// service is the RPC receiver. Method names are the wire contract with
// Client.
type service struct {
	ctx    context.Context
	daemon *daemon.Daemon
	logger *slog.Logger
}

func (s *service) Start(_ StartRequest, resp *StartResponse) error {
	if err := s.daemon.Start(s.ctx); err != nil {
		resp.Message = err.Error()
		return nil
	}
	*resp = StartResponse{Started: true, Message: "daemon started"}
	s.logger.Info("daemon started via IPC", logging.String(logging.FieldEventType, "daemon_start"))
	return nil
}

func (s *service) Stop(_ StopRequest, resp *StopResponse) error {
	s.daemon.Stop()
	resp.Stopped = true
	s.logger.Info("daemon stopped via IPC", logging.String(logging.FieldEventType, "daemon_stop"))
	return nil
}

func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	*resp = s.daemon.Status(s.ctx).DTO()
	return nil
}

func (s *service) Scan(req ScanRequest, resp *ScanResponse) error {
	if req.Async {
		resp.Accepted = s.daemon.TriggerScan()
		return nil
	}
	results, err := s.daemon.ScanNow(s.ctx)
	if err != nil {
		return err
	}
	*resp = ScanResponse{Accepted: true, Results: api.FromResults(results)}
	return nil
}

func (s *service) Search(_ SearchRequest, resp *SearchResponse) error {
	resp.Accepted = s.daemon.TriggerSearch()
	return nil
}

func (s *service) SnatchList(req SnatchListRequest, resp *SnatchListResponse) error {
	items, err := s.daemon.ListSnatches(s.ctx, statusFilter(req.Statuses)...)
	if err != nil {
		return err
	}
	resp.Items = api.FromSnatches(items)
	return nil
}

func (s *service) SnatchDescribe(req SnatchDescribeRequest, resp *SnatchDescribeResponse) error {
	if req.ID <= 0 {
		return fmt.Errorf("invalid snatch id %d", req.ID)
	}
	item, err := s.daemon.GetSnatch(s.ctx, req.ID)
	switch {
	case err != nil:
		return err
	case item == nil:
		return fmt.Errorf("snatch %d not found", req.ID)
	}
	resp.Item = api.FromSnatch(item)
	return nil
}

func (s *service) SnatchClear(req SnatchClearRequest, resp *SnatchClearResponse) error {
	removed, err := s.daemon.ClearSnatches(s.ctx, statusFilter(req.Statuses)...)
	if err != nil {
		return err
	}
	resp.Removed = removed
	s.logger.Info("snatches cleared",
		logging.String(logging.FieldEventType, "snatch_clear"),
		logging.Int64("removed_count", removed))
	return nil
}

func (s *service) TestNotification(_ TestNotificationRequest, resp *TestNotificationResponse) error {
	sent, message, err := s.daemon.TestNotification(s.ctx)
	*resp = TestNotificationResponse{Sent: sent, Message: message}
	return err
}

// statusFilter drops names that are not snatch statuses.
func statusFilter(values []string) []snatch.Status {
	var out []snatch.Status
	for _, v := range values {
		if status, ok := snatch.ParseStatus(v); ok {
			out = append(out, status)
		}
	}
	return out
}
