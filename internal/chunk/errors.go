package chunk

import "errors"

// ErrIntegrity is returned when reassembled content does not match the
// checksum recorded at split time.
var ErrIntegrity = errors.New("chunk integrity check failed: checksum mismatch")
