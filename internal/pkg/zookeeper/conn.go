// internal/pkg/zookeeper/conn.go
package zookeeper

import (
	"time"

	"github.com/go-zookeeper/zk"
)

// Conn 封装了 ZooKeeper 会话
type Conn struct {
	*zk.Conn
}

// Connect 建立一个 ZooKeeper 会话。
// servers 为 ZooKeeper 集群地址列表。
func Connect(servers []string) (*Conn, error) {
	conn, _, err := zk.Connect(servers, 10*time.Second)
	if err != nil {
		return nil, err
	}
	return &Conn{Conn: conn}, nil
}
