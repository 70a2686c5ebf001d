package messaging

import "errors"

// ErrNotConnected is returned by CheckConnected when the broker is unreachable.
var ErrNotConnected = errors.New("not connected to message broker")

// CheckConnected returns ErrNotConnected if client has lost its connection.
func CheckConnected(client Client) error {
	if client == nil {
		return errors.New("client is nil")
	}
	if !client.IsConnected() {
		return ErrNotConnected
	}
	return nil
}
