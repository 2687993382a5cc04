// internal/pkg/zookeeper/lock.go
package zookeeper

import (
	"errors"
	"fmt"

	"github.com/go-zookeeper/zk"
)

const lockRoot = "/distributed_locks" // 所有分布式锁的根节点

// ErrLockHeld 表示锁已被其他实例持有
var ErrLockHeld = errors.New("zookeeper: lock held by another instance")

// Mutex 是一个非阻塞的分布式互斥锁。
// 基于临时节点实现：节点存在即代表锁被占用，会话断开后节点自动删除，
// 因此持有者崩溃不会让锁永久卡死。
type Mutex struct {
	conn *Conn
	path string // 锁节点路径，例如 /distributed_locks/expiry-sweep
}

// NewMutex 创建一个分布式互斥锁实例
func NewMutex(conn *Conn, resourceID string) *Mutex {
	// 确保根节点存在。生产环境中通常由初始化脚本完成。
	if exists, _, err := conn.Exists(lockRoot); err == nil && !exists {
		_, createErr := conn.Create(lockRoot, []byte(""), 0, zk.WorldACL(zk.PermAll))
		if createErr != nil && createErr != zk.ErrNodeExists {
			panic(fmt.Sprintf("failed to create lock root node: %v", createErr))
		}
	}

	return &Mutex{
		conn: conn,
		path: lockRoot + "/" + resourceID,
	}
}

// TryLock 尝试获取锁。锁被占用时立即返回 ErrLockHeld 而不是等待，
// 调用方（如定时清扫任务）直接跳过本轮即可。
func (m *Mutex) TryLock() error {
	_, err := m.conn.Create(m.path, []byte(""), zk.FlagEphemeral, zk.WorldACL(zk.PermAll))
	if err == zk.ErrNodeExists {
		return ErrLockHeld
	}
	if err != nil {
		return fmt.Errorf("failed to create lock node: %w", err)
	}
	return nil
}

// Unlock 释放锁。节点不存在时视为已释放。
func (m *Mutex) Unlock() error {
	err := m.conn.Delete(m.path, -1)
	if err != nil && err != zk.ErrNoNode {
		return fmt.Errorf("failed to delete lock node: %w", err)
	}
	return nil
}
