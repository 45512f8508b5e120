package repository

import "errors"

// ErrVersionConflict 乐观锁冲突: 记录在读取之后已被其他写入者修改
var ErrVersionConflict = errors.New("version conflict")
