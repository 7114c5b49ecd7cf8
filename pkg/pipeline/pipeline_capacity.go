package pipeline

// Capacity reports the pipeline's total budget in bytes, prefix-inclusive
// for datagram pipelines. It lets callers at the user-copy boundary (see
// pkg/socket's UserSource/UserSink adapters) size a bounce buffer without
// reaching into the concrete type.
func (s *Stream) Capacity() int { return s.cap }

func (d *Datagram) Capacity() int { return d.capacity }
