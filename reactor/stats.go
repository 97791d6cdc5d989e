package reactor

// Stats is a point-in-time snapshot of reactor activity, mirroring the
// shape a debug monitor polls for a human-readable status line.
type Stats struct {
	ActiveConns   int
	AcceptedTotal int
	ClosedTotal   int
	RejectedAtCap int
	BytesRead     int64
}

func (s *Stats) incAccepted()     { s.AcceptedTotal++ }
func (s *Stats) incClosed()       { s.ClosedTotal++ }
func (s *Stats) incRejected()     { s.RejectedAtCap++ }
func (s *Stats) addBytesIn(n int) { s.BytesRead += int64(n) }
