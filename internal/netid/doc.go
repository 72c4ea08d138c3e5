// Package netid 实现 Network-ID Manager（NIM）。
//
// NIM 通过 HTL 受限的"秘密 ping"测量邻居之间的两两可达性，把直连邻居划分为
// network group，并为本地节点所在的分组发布一个共识整数标签（network id）。
//
// 四个子问题对应四组协作文件：
//   - 请求/响应协议（跳间转发、HTL 衰减、环路拒绝）：engine.go / message.go
//   - 自适应参数层（按 target/via 学习 HTL 与 dawn HTL）：sampler.go / matrix.go / avg.go
//   - 周期性批处理（聚类邻居并分配稳定整数标签）：prober.go / reckoner.go / group.go
//   - 响应式重标注（对端公告自身 id 时避免抖动地改写标签）：reactor.go
//
// 传输、路由表、调度器、HTL 上限、随机数源与去重集合均为外部协作者，只在
// pkg/interfaces 中以接口形式声明；本包从不自行维护网络拓扑视图。
package netid
