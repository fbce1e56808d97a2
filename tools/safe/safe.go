package safe

import (
	"QChat/logger"
)

// Go starts a goroutine that recovers from panic,
// so one bad connection handler cannot crash the process.
func Go(f func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Errorf("[safe.Go] panic recovered: %v", r)
			}
		}()
		f()
	}()
}
