package listapp

import "github.com/ceyewan/cartmesh/xerrors"

// ErrEntryOutOfRange 条目索引越界
var ErrEntryOutOfRange = xerrors.New("listapp: entry index out of range")
