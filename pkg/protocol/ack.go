package protocol

// Ack is a follower's report of the last frame it applied. A follower whose
// Lag passes the hub's limit is resynced with a snapshot.
type Ack struct {
	LastSeq uint64
}

func EncodeAck(ack *Ack) []byte {
	e := NewEncoder()
	e.WriteUvarint(ack.LastSeq)
	return e.Bytes()
}

func DecodeAck(data []byte) (*Ack, error) {
	seq, err := NewDecoder(data).ReadUvarint()
	if err != nil {
		return nil, err
	}
	return &Ack{LastSeq: seq}, nil
}

// Lag is the number of frames between the acknowledged one and seq.
// An ack from the future counts as caught up.
func (a *Ack) Lag(seq uint64) uint64 {
	return seq - min(a.LastSeq, seq)
}
