// Package protocol 定义 netid-manager 使用的协议 ID。
//
// 沿用 go-dep2p 的系统协议命名方式：系统协议无需 Realm 成员资格，
// 格式为 /dep2p/sys/<protocol>/<version>。
package protocol

import "fmt"

// ID 是协议标识符的类型别名。
type ID string

// 协议前缀常量。
const (
	// PrefixSys 系统协议前缀
	PrefixSys = "/dep2p/sys"
)

// 网络身份协议命名常量。
const (
	// AppProtocolNetID Network-ID Manager 的协议族名称
	AppProtocolNetID = "netid"

	// Version10 协议版本 1.0.0
	Version10 = "1.0.0"
)

// 网络身份分组下的具体协议 ID（均未声明 Realm，属系统协议）。
const (
	// StoreSecret 存储秘密协议：peer-to-peer only，从不转发。
	StoreSecret ID = ID(PrefixSys + "/netid/store-secret/" + Version10)

	// SecretPing 秘密 ping 协议：可转发的探测请求。
	SecretPing ID = ID(PrefixSys + "/netid/secret-ping/" + Version10)

	// NetworkID 节点公告自身网络 id 的协议。
	NetworkID ID = ID(PrefixSys + "/netid/network-id/" + Version10)
)

// BuildProtocol 便捷函数：构建系统协议 ID。
func BuildProtocol(name, version string) ID {
	return ID(fmt.Sprintf("%s/%s/%s", PrefixSys, name, version))
}

// SystemProtocols 返回 netid-manager 注册的所有系统协议。
func SystemProtocols() []ID {
	return []ID{StoreSecret, SecretPing, NetworkID}
}
