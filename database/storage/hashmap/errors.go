package hashmap

import "errors"

var errReadOnly = errors.New("write in read-only transaction")
