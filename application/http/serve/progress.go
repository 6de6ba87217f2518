package serve

// Progress is the state of a transfer as seen by observers.
// BytesSent never exceeds TotalBytes.
type Progress struct {
	BytesSent  uint64
	TotalBytes uint64

	// LastReportedPercent is the percent observers were last notified of.
	LastReportedPercent uint8
}

// Percent returns the floor percent of bytes sent.
// Empty transfer is considered to be done.
func (p Progress) Percent() uint8 {
	if p.TotalBytes == 0 || p.BytesSent >= p.TotalBytes {
		return 100
	}
	return uint8(p.BytesSent * 100 / p.TotalBytes)
}

func (p Progress) Done() bool { return p.BytesSent >= p.TotalBytes }
