package main

import (
	"github.com/safing/occbase/info"

	// Storage backends.
	_ "github.com/safing/occbase/database/storage/badger"
	_ "github.com/safing/occbase/database/storage/bbolt"
	_ "github.com/safing/occbase/database/storage/hashmap"
	_ "github.com/safing/occbase/database/storage/sinkhole"
	_ "github.com/safing/occbase/database/storage/sqlite"
)

func main() {
	info.Set("occbase", "", "GPLv3")
	Execute()
}
