package layout

// Arrange 计算一个或两个堆叠文本块的纵向起点：
//
//	total = height(block1) + gap + height(block2)
//	startY = centerY - total/2 + anchorOffset
//
// 除法为整数（向下取整）。block2 可以为 nil；仅当两个块都非空时才加入 gap。
func Arrange(block1 TextBlock, block2 *TextBlock, g Geometry) Plan {
	plan := Plan{
		Left:   g.LeftX(),
		Block1: block1,
		Block2: block2,
	}
	if block2 != nil && !block1.Empty() && !block2.Empty() {
		plan.Gap = g.BlockGap
	}
	plan.StartY = g.CenterY() - floorDiv(plan.TotalHeight(), 2) + g.AnchorOffset
	return plan
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
