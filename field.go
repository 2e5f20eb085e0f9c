package main

import (
	"errors"
	"fmt"
)

// 設定エラー（パネル寸法・行列形状の不正）
var ErrConfiguration = errors.New("configuration error")

// 太陽電池アレイ全体の占有ボリューム
type PanelFieldGrid struct {
	grid          [][][]bool // 占有ボリューム, [H][cols][z]
	h_panel       int        // パネル高さ（単位セル数）
	cols          int        // アレイ全幅（単位セル数）
	z_row         int        // 行数
	total_area    int        // 全パネルセル数
	front_row_a   int        // 最前行のパネルセル数
	no_shading_a  int        // 最前行以外のパネルセル数
	panel_width   int        // パネル幅（単位セル数）
	panel_spacing int        // パネル間隔（単位セル数）
}

/*
粗いパネル配置行列から占有ボリュームを構築する。

    Args:
        presence: パネル配置行列（行×モジュール）, [z][c]
        h_panel: パネル高さ, 単位セル数
        w_panel: パネル幅, 単位セル数
        panel_spacing: パネル間隔, 単位セル数

    Returns:
        PanelFieldGrid クラス

    Notes:
        行 r のモジュール m が存在する場合、高さ h_panel × 幅 (w_panel + panel_spacing) の
        基本パターン（先頭 w_panel 列が True, 残り panel_spacing 列が False）を書き込む。
        存在しない場合は同じ大きさの全 False ブロックとする。
        アレイ全幅は cols = c * (w_panel + panel_spacing) となる。
*/
func NewPanelFieldGrid(presence [][]bool, h_panel int, w_panel int, panel_spacing int) (*PanelFieldGrid, error) {
	if h_panel <= 0 || w_panel <= 0 {
		return nil, fmt.Errorf("%w: パネル寸法は正の値でなければならない (h=%d, w=%d)", ErrConfiguration, h_panel, w_panel)
	}
	if panel_spacing < 0 {
		return nil, fmt.Errorf("%w: パネル間隔は負にできない (%d)", ErrConfiguration, panel_spacing)
	}
	z_row := len(presence)
	if z_row == 0 {
		return nil, fmt.Errorf("%w: パネル配置行列が空", ErrConfiguration)
	}
	c := len(presence[0])
	if c == 0 {
		return nil, fmt.Errorf("%w: パネル配置行列の列数が 0", ErrConfiguration)
	}
	for r, row := range presence {
		if len(row) != c {
			return nil, fmt.Errorf("%w: パネル配置行列の列数が揃っていない (行 %d: %d != %d)", ErrConfiguration, r, len(row), c)
		}
	}

	cols := c * (w_panel + panel_spacing)

	// 占有ボリュームの確保
	grid := make([][][]bool, h_panel)
	for h := 0; h < h_panel; h++ {
		grid[h] = make([][]bool, cols)
		for w := 0; w < cols; w++ {
			grid[h][w] = make([]bool, z_row)
		}
	}

	// 基本パターンのタイル書き込み
	pitch := w_panel + panel_spacing
	for r := 0; r < z_row; r++ {
		for m := 0; m < c; m++ {
			if !presence[r][m] {
				continue
			}
			for h := 0; h < h_panel; h++ {
				for w := 0; w < w_panel; w++ {
					grid[h][m*pitch+w][r] = true
				}
			}
		}
	}

	self := &PanelFieldGrid{
		grid:          grid,
		h_panel:       h_panel,
		cols:          cols,
		z_row:         z_row,
		panel_width:   w_panel,
		panel_spacing: panel_spacing,
	}

	// 派生面積定数（分母・基準値として以後不変）
	for h := 0; h < h_panel; h++ {
		for w := 0; w < cols; w++ {
			for r := 0; r < z_row; r++ {
				if grid[h][w][r] {
					self.total_area++
					if r == 0 {
						self.front_row_a++
					} else {
						self.no_shading_a++
					}
				}
			}
		}
	}

	return self, nil
}

// 全パネルセル数を取得する。
func (self *PanelFieldGrid) get_total_area() int {
	return self.total_area
}

// 最前行のパネルセル数を取得する。
func (self *PanelFieldGrid) get_front_row_area() int {
	return self.front_row_a
}

/*
最前行以外のパネルセル数を取得する。

    Notes:
        無遮蔽時の受光面積の基準値であり、日影計算の上限値となる。
*/
func (self *PanelFieldGrid) get_no_shading_area() int {
	return self.no_shading_a
}

// 行数を取得する。
func (self *PanelFieldGrid) number_of_rows() int {
	return self.z_row
}
