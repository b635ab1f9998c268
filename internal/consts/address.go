package consts

import "defi-snapshot-xrd/internal/types"

// Bech32 地址常量（可读性高，适合配置与日志使用）
const (
	// XRD 原生代币资源地址
	XrdResourceStr = "resource_rdx1tknxxxxxxxxxradxrdxxxxxxxxx009923554798xxxxxxxxxradxrd"
)

var (
	XrdResource = types.AddressFromString(XrdResourceStr)
)

// XrdDivisibility XRD 的小数位数，计算可领取数量时用于截断
const XrdDivisibility = 18
