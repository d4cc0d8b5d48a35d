// Package store 提供基于 JSON 文件的轻量持久化集合。
//
// store 面向演示级服务的数据层：每个集合对应一个 JSON 文件，
// 全量数据常驻内存，写操作在锁内更新内存后原子落盘
// （先写临时文件再 rename）。读多写少、数据量小的场景够用，
// 不适合高并发写或大数据集。
//
// ## 基本使用
//
//	items, _ := store.Open[Item]("data/items.json")
//	id, _ := items.Insert(Item{Name: "牛奶"})
//	item, ok := items.Get(id)
//	items.Update(id, func(it Item) (Item, error) {
//	    it.Purchased = true
//	    return it, nil
//	})
package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"github.com/ceyewan/cartmesh/clog"
	"github.com/ceyewan/cartmesh/xerrors"
)

// 错误定义
var (
	// ErrPathEmpty 文件路径为空
	ErrPathEmpty = xerrors.New("store: path is empty")

	// ErrNotFound 记录不存在
	ErrNotFound = xerrors.New("store: record not found")
)

// Collection 一个持久化的记录集合
//
// 记录以字符串 ID 为键。所有方法并发安全。
type Collection[T any] struct {
	path   string
	logger clog.Logger

	mu    sync.RWMutex
	items map[string]T
}

// Option 集合初始化选项函数
type Option func(*collectionOptions)

type collectionOptions struct {
	logger clog.Logger
}

// WithLogger 设置 Logger，传入 nil 时使用 clog.Discard()
// 内部会自动添加 namespace: "store"
func WithLogger(logger clog.Logger) Option {
	return func(o *collectionOptions) {
		if logger == nil {
			o.logger = clog.Discard()
		} else {
			o.logger = logger.WithNamespace("store")
		}
	}
}

// Open 打开（或创建）一个集合
//
// 文件存在时加载全部记录，不存在时从空集合开始，父目录会自动创建。
func Open[T any](path string, opts ...Option) (*Collection[T], error) {
	if path == "" {
		return nil, ErrPathEmpty
	}

	o := &collectionOptions{}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = clog.Discard()
	}

	c := &Collection[T]{
		path:   path,
		logger: o.logger,
		items:  make(map[string]T),
	}

	if err := c.load(); err != nil {
		return nil, err
	}

	c.logger.Info("collection opened",
		clog.String("path", path),
		clog.Int("records", len(c.items)))

	return c, nil
}

// Get 按 ID 查询记录
func (c *Collection[T]) Get(id string) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	v, ok := c.items[id]
	return v, ok
}

// List 返回全部记录的快照（ID 到记录的映射副本）
func (c *Collection[T]) List() map[string]T {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[string]T, len(c.items))
	for id, v := range c.items {
		out[id] = v
	}
	return out
}

// Find 返回全部满足谓词的记录 ID
func (c *Collection[T]) Find(pred func(id string, v T) bool) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []string
	for id, v := range c.items {
		if pred(id, v) {
			out = append(out, id)
		}
	}
	return out
}

// Len 返回记录数
func (c *Collection[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Insert 插入新记录并分配 ID
func (c *Collection[T]) Insert(v T) (string, error) {
	id := uuid.NewString()
	if err := c.Put(id, v); err != nil {
		return "", err
	}
	return id, nil
}

// Put 写入（覆盖）指定 ID 的记录
func (c *Collection[T]) Put(id string, v T) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[id] = v
	return c.flush()
}

// Update 在锁内读改写指定记录
//
// fn 返回错误时记录保持原样。记录不存在返回 ErrNotFound。
func (c *Collection[T]) Update(id string, fn func(T) (T, error)) (T, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero T
	cur, ok := c.items[id]
	if !ok {
		return zero, ErrNotFound
	}

	next, err := fn(cur)
	if err != nil {
		return zero, err
	}

	c.items[id] = next
	if err := c.flush(); err != nil {
		return zero, err
	}
	return next, nil
}

// Delete 删除指定记录，记录不存在返回 ErrNotFound
func (c *Collection[T]) Delete(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.items[id]; !ok {
		return ErrNotFound
	}

	delete(c.items, id)
	return c.flush()
}

// load 从磁盘加载集合
func (c *Collection[T]) load() error {
	data, err := os.ReadFile(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return xerrors.Wrapf(err, "read %s", c.path)
	}

	if err := json.Unmarshal(data, &c.items); err != nil {
		return xerrors.Wrapf(err, "parse %s", c.path)
	}
	return nil
}

// flush 原子落盘（调用方持有写锁）
func (c *Collection[T]) flush() error {
	data, err := json.MarshalIndent(c.items, "", "  ")
	if err != nil {
		return xerrors.Wrap(err, "marshal collection")
	}

	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return xerrors.Wrapf(err, "create dir %s", dir)
	}

	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return xerrors.Wrapf(err, "write %s", tmp)
	}
	if err := os.Rename(tmp, c.path); err != nil {
		return xerrors.Wrapf(err, "rename %s", tmp)
	}
	return nil
}
