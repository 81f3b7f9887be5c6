package storage

import (
	"strconv"

	"taigabot/pkg/logx"
)

func nopLogger() logx.Logger { return logx.Nop() }

func itoa(v int64) string { return strconv.FormatInt(v, 10) }
