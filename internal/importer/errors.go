package importer

import "errors"

var errChessComDisabled = errors.New("importer: chess.com import is not configured")
