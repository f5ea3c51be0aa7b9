package protocol

// ErrorCode classifies an ErrorMessage.
type ErrorCode uint16

const (
	ErrUnknown      ErrorCode = 0x0000
	ErrInvalidFrame ErrorCode = 0x0001 // Follower sent something undecodable
	ErrSourceParse  ErrorCode = 0x0002 // Watched file no longer parses; the last good tree stays live
	ErrDesync       ErrorCode = 0x0003 // A patch did not resolve against the follower's tree
	ErrServerError  ErrorCode = 0x0100
)

var errorCodeNames = map[ErrorCode]string{
	ErrInvalidFrame: "InvalidFrame",
	ErrSourceParse:  "SourceParse",
	ErrDesync:       "Desync",
	ErrServerError:  "ServerError",
}

func (ec ErrorCode) String() string {
	if name, ok := errorCodeNames[ec]; ok {
		return name
	}
	return "Unknown"
}

// ErrorMessage is the payload of a FrameError. After a fatal error the
// sender closes the connection.
type ErrorMessage struct {
	Code    ErrorCode
	Message string
	Fatal   bool
}

// NewError returns a non-fatal error message.
func NewError(code ErrorCode, message string) *ErrorMessage {
	return &ErrorMessage{Code: code, Message: message}
}

// NewFatalError returns an error message after which the sender closes.
func NewFatalError(code ErrorCode, message string) *ErrorMessage {
	em := NewError(code, message)
	em.Fatal = true
	return em
}

func (em *ErrorMessage) Error() string {
	s := em.Code.String() + ": " + em.Message
	if em.Fatal {
		s = "fatal: " + s
	}
	return s
}

func EncodeErrorMessage(em *ErrorMessage) []byte {
	e := NewEncoder()
	e.WriteUvarint(uint64(em.Code))
	e.WriteString(em.Message)
	e.WriteBool(em.Fatal)
	return e.Bytes()
}

func DecodeErrorMessage(data []byte) (*ErrorMessage, error) {
	var (
		em   ErrorMessage
		code uint64
		err  error
	)
	d := NewDecoder(data)
	if code, err = d.ReadUvarint(); err != nil {
		return nil, err
	}
	if code > 0xFFFF {
		return nil, ErrVarintOverflow
	}
	em.Code = ErrorCode(code)
	if em.Message, err = d.ReadString(); err != nil {
		return nil, err
	}
	if em.Fatal, err = d.ReadBool(); err != nil {
		return nil, err
	}
	return &em, nil
}
