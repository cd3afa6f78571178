package progress

import "encoding/json"

// Node NodeGroup 中的节点
type Node interface {
	NodeID() uint
}

// NodeGroup 按插入顺序保存子节点的有序 map，附带汇总计数。
// 替换已有节点不改变顺序
type NodeGroup[T Node] struct {
	Count     int
	Passed    int
	Submitted int
	Attempted int
	// 只有测验分组维护 Failed
	Failed int

	order []uint
	items map[uint]T
}

func (g *NodeGroup[T]) Len() int {
	return len(g.order)
}

func (g *NodeGroup[T]) Get(id uint) (T, bool) {
	n, ok := g.items[id]
	return n, ok
}

func (g *NodeGroup[T]) Has(id uint) bool {
	_, ok := g.items[id]
	return ok
}

// Put 追加新节点，已存在时原位替换
func (g *NodeGroup[T]) Put(node T) {
	if g.items == nil {
		g.items = make(map[uint]T)
	}
	id := node.NodeID()
	if _, ok := g.items[id]; !ok {
		g.order = append(g.order, id)
	}
	g.items[id] = node
}

func (g *NodeGroup[T]) Remove(id uint) bool {
	if _, ok := g.items[id]; !ok {
		return false
	}
	delete(g.items, id)
	for i, v := range g.order {
		if v == id {
			g.order = append(g.order[:i:i], g.order[i+1:]...)
			break
		}
	}
	return true
}

// IDs 返回有序 id 的副本，遍历时可以删除
func (g *NodeGroup[T]) IDs() []uint {
	out := make([]uint, len(g.order))
	copy(out, g.order)
	return out
}

func (g *NodeGroup[T]) All() []T {
	out := make([]T, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, g.items[id])
	}
	return out
}

func (g *NodeGroup[T]) Index(id uint) int {
	for i, v := range g.order {
		if v == id {
			return i
		}
	}
	return -1
}

func (g *NodeGroup[T]) At(i int) (T, bool) {
	var zero T
	if i < 0 || i >= len(g.order) {
		return zero, false
	}
	return g.items[g.order[i]], true
}

func (g *NodeGroup[T]) First() (T, bool) {
	return g.At(0)
}

func (g *NodeGroup[T]) Prev(id uint) (T, bool) {
	i := g.Index(id)
	if i <= 0 {
		var zero T
		return zero, false
	}
	return g.At(i - 1)
}

func (g *NodeGroup[T]) Next(id uint) (T, bool) {
	i := g.Index(id)
	if i < 0 {
		var zero T
		return zero, false
	}
	return g.At(i + 1)
}

// Clamp 将计数限制在 [0, Count]
func (g *NodeGroup[T]) Clamp() {
	if g.Count < 0 {
		g.Count = 0
	}
	clampInt(&g.Passed, g.Count)
	clampInt(&g.Submitted, g.Count)
	clampInt(&g.Attempted, g.Count)
	clampInt(&g.Failed, g.Count)
}

func clampInt(v *int, max int) {
	if *v < 0 {
		*v = 0
	}
	if *v > max {
		*v = max
	}
}

func (g *NodeGroup[T]) clone(copyNode func(T) T) NodeGroup[T] {
	out := NodeGroup[T]{
		Count:     g.Count,
		Passed:    g.Passed,
		Submitted: g.Submitted,
		Attempted: g.Attempted,
		Failed:    g.Failed,
	}
	for _, id := range g.order {
		out.Put(copyNode(g.items[id]))
	}
	return out
}

type groupJSON[T Node] struct {
	Count     int `json:"count"`
	Passed    int `json:"passed"`
	Submitted int `json:"submitted"`
	Attempted int `json:"attempted"`
	Failed    int `json:"failed,omitempty"`
	List      []T `json:"list"`
}

func (g NodeGroup[T]) MarshalJSON() ([]byte, error) {
	return json.Marshal(groupJSON[T]{
		Count:     g.Count,
		Passed:    g.Passed,
		Submitted: g.Submitted,
		Attempted: g.Attempted,
		Failed:    g.Failed,
		List:      g.All(),
	})
}

func (g *NodeGroup[T]) UnmarshalJSON(data []byte) error {
	var raw groupJSON[T]
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*g = NodeGroup[T]{
		Count:     raw.Count,
		Passed:    raw.Passed,
		Submitted: raw.Submitted,
		Attempted: raw.Attempted,
		Failed:    raw.Failed,
	}
	for _, n := range raw.List {
		// 空节点和 id 为 0 的节点无法寻址
		if n.NodeID() == 0 {
			continue
		}
		g.Put(n)
	}
	return nil
}
