package domain

// Achievement 成就定义（编译期固定）
// 约束: ID全局唯一且永不复用，解锁状态按ID持久化
type Achievement struct {
	ID          int      `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Icon        string   `json:"icon"`
	Type        StatType `json:"-"`
	TypeName    string   `json:"type"`
	Target      int64    `json:"target"`
}

// Met 判断统计值是否达到目标
func (a Achievement) Met(stats Stats) bool {
	return stats.Value(a.Type) >= a.Target
}

// UnlockedSet 已解锁成就ID集合（单调，只增不减）
type UnlockedSet map[int]struct{}

// NewUnlockedSet 从持久化的ID列表构建集合
func NewUnlockedSet(ids []int) UnlockedSet {
	set := make(UnlockedSet, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

// Contains 判断成就是否已解锁
func (u UnlockedSet) Contains(id int) bool {
	_, ok := u[id]
	return ok
}

// Add 加入解锁集合
func (u UnlockedSet) Add(id int) {
	u[id] = struct{}{}
}

// IDs 返回排序无关的ID列表（用于持久化）
func (u UnlockedSet) IDs() []int {
	ids := make([]int, 0, len(u))
	for id := range u {
		ids = append(ids, id)
	}
	return ids
}
