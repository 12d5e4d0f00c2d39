package errors

import "errors"

// ErrStaleSnapshot 重写签到表前发现数据已被其他终端修改
var ErrStaleSnapshot = errors.New("ledger changed since it was read, refresh and retry")

// ErrBackingStoreUnavailable 表格存储（数据库 / Excel / Google Sheets）不可用
var ErrBackingStoreUnavailable = errors.New("backing store unavailable")
