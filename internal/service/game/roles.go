package game

import "fmt"

// AssignRoles 为玩家分配身份：
// 卧底数量被限制为 min(quota, len(playerIDs)-1)，保证至少一个平民；
// 仅当启用白板且玩家数大于 卧底数+1 时，从剩余玩家中均匀抽出一个白板；
// 其余全部为平民。
func AssignRoles(playerIDs []string, quota int, mrWhiteEnabled bool, r Rand) (map[string]Role, error) {
	n := len(playerIDs)
	if n < 1 {
		return nil, fmt.Errorf("%w: 无法分配身份，当前玩家数为 %d", ErrInsufficientPlayers, n)
	}

	quota = min(max(quota, 0), n-1)

	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}

	// 部分洗牌：前 quota 个位置即为无放回均匀抽样的结果
	for i := 0; i < quota; i++ {
		j := i + r.IntN(n-i)
		indices[i], indices[j] = indices[j], indices[i]
	}

	roles := make(map[string]Role, n)
	for _, id := range playerIDs {
		roles[id] = ROLE_CIVIL
	}

	for _, idx := range indices[:quota] {
		roles[playerIDs[idx]] = ROLE_UNDERCOVER
	}

	if mrWhiteEnabled && n > quota+1 {
		rest := indices[quota:]
		roles[playerIDs[rest[r.IntN(len(rest))]]] = ROLE_MRWHITE
	}

	return roles, nil
}

func countRoles(roles map[string]Role) map[Role]int {
	counts := make(map[Role]int, 3)
	for _, role := range roles {
		counts[role]++
	}

	return counts
}
