// Package rotation provides fair selection over fixed collections.
//
// Pool returns items at random without repeating any item until every item
// has been returned once. LockQueue adds mutual exclusion: each requester
// gets an item no other requester holds, waiting in FIFO order when all
// items are taken.
//
// # Usage
//
//	pool, err := rotation.NewPool([]string{"a", "b", "c"})
//	if err != nil {
//	    return err
//	}
//	host, _ := pool.Next()
//
//	queue, err := rotation.NewLockQueue([]string{"key-1", "key-2"})
//	if err != nil {
//	    return err
//	}
//	queue.Next(5*time.Second, func(err error, key string, release func()) {
//	    if err != nil {
//	        return // rotation.ErrLockTimeout
//	    }
//	    defer release()
//	    // use key
//	})
//
// # Version
//
// Current version: 1.0.0
// Minimum compatible version: 1.0.0
//
// See version.go for version constants that can be used programmatically.
package rotation
