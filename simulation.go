package main

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"gonum.org/v1/gonum/floats"
)

// 日影マスクの確保不能（要求寸法が不正または過大）
var ErrBufferSize = errors.New("mask buffer size error")

// 日影マスクの最大セル数
const max_mask_cells = int64(1) << 31

/*
ステップごとに再利用する日影マスク。

    Notes:
        寸法は (H, cols, z-1) であり、最終行は後方に影を落とさないため
        占有ボリュームより行方向に 1 枚少ない。
        mask[h][w][k] は前行 k が行 k+1 に落とす影を表し、True が無遮蔽を意味する。
        各ステップの先頭で全 True にリセットし、ステップ間で状態を持ち越さない。
        ワーカー間で共有してはならない（ワーカーごとに 1 個確保する）。
*/
type ShadingMask struct {
	mask    [][][]bool
	h_panel int
	cols    int
	z_recv  int // 受影行数 = z - 1
}

/*
日影マスクを確保する。

    Args:
        h_panel: パネル高さ, 単位セル数
        cols: アレイ全幅, 単位セル数
        z_recv: 受影行数（行数 - 1）

    Returns:
        ShadingMask クラス
*/
func NewShadingMask(h_panel int, cols int, z_recv int) (*ShadingMask, error) {
	if h_panel <= 0 || cols <= 0 || z_recv < 0 {
		return nil, fmt.Errorf("%w: 不正な寸法 (%d, %d, %d)", ErrBufferSize, h_panel, cols, z_recv)
	}
	if cells := int64(h_panel) * int64(cols) * int64(z_recv); cells > max_mask_cells {
		return nil, fmt.Errorf("%w: 要求セル数 %d が上限 %d を超える", ErrBufferSize, cells, max_mask_cells)
	}

	mask := make([][][]bool, h_panel)
	for h := 0; h < h_panel; h++ {
		mask[h] = make([][]bool, cols)
		for w := 0; w < cols; w++ {
			row := make([]bool, z_recv)
			for k := 0; k < z_recv; k++ {
				row[k] = true
			}
			mask[h][w] = row
		}
	}

	return &ShadingMask{mask: mask, h_panel: h_panel, cols: cols, z_recv: z_recv}, nil
}

// 全セルを True（無遮蔽）に戻す。
func (self *ShadingMask) reset() {
	for h := 0; h < self.h_panel; h++ {
		for w := 0; w < self.cols; w++ {
			row := self.mask[h][w]
			for k := range row {
				row[k] = true
			}
		}
	}
}

// 全セルが True か否かを返す。
func (self *ShadingMask) is_all_unshaded() bool {
	for h := 0; h < self.h_panel; h++ {
		for w := 0; w < self.cols; w++ {
			for _, v := range self.mask[h][w] {
				if !v {
					return false
				}
			}
		}
	}
	return true
}

/*
日影プロファイルに従いマスクに前行の影を書き込む。

    Args:
        grid: 占有ボリューム
        profile: 日影プロファイル

    Notes:
        高さ方向は上端側の band = min(vertical_index, H) セル分
        （grid の高さ添字 [H-band, H)）のみを書き換える。
        横方向は書き込み前に転送元・転送先の有効範囲を求め、
        範囲外となる影は折り返さずに描かない（書き込まれないセルは
        リセット直後の True のまま残る）。
            WestShift: 転送先 [0, cols-d) ← 転送元 [d, cols)
            EastShift: 転送先 [d, cols) ← 転送元 [0, cols-d)
            NoShift:   全幅, ずらしなし
*/
func (self *ShadingMask) apply_shadow(grid *PanelFieldGrid, profile ShadowProfile) {
	band := profile.vertical_index
	if band <= 0 {
		return
	}
	if band > self.h_panel {
		band = self.h_panel
	}

	// 転送先の横方向有効範囲と転送元へのオフセット
	d := profile.horizontal_displacement
	var w_begin, w_end, src_off int
	switch profile.direction {
	case WestShift:
		w_begin, w_end, src_off = 0, self.cols-d, d
	case EastShift:
		w_begin, w_end, src_off = d, self.cols, -d
	case NoShift:
		w_begin, w_end, src_off = 0, self.cols, 0
	default:
		panic("invalid shadow direction")
	}
	if w_begin < 0 {
		w_begin = 0
	}
	if w_end > self.cols {
		w_end = self.cols
	}

	for h := self.h_panel - band; h < self.h_panel; h++ {
		for w := w_begin; w < w_end; w++ {
			src := grid.grid[h][w+src_off]
			dst := self.mask[h][w]
			for k := 0; k < self.z_recv; k++ {
				// 前行 k にパネルがあるセルの後方は影となる。
				dst[k] = !src[k]
			}
		}
	}
}

/*
マスクと占有ボリュームの論理積により無遮蔽受光面積を数える。

    Args:
        grid: 占有ボリューム

    Returns:
        行 1..z-1 の無遮蔽パネルセル数
*/
func (self *ShadingMask) unshaded_area(grid *PanelFieldGrid) int {
	area := 0
	for h := 0; h < self.h_panel; h++ {
		for w := 0; w < self.cols; w++ {
			occ := grid.grid[h][w]
			msk := self.mask[h][w]
			for k := 0; k < self.z_recv; k++ {
				if occ[k+1] && msk[k] {
					area++
				}
			}
		}
	}
	return area
}

// ステップ n の入力（正の日射量と日影プロファイルの組）
type TimestepRecord struct {
	insolation float64
	profile    ShadowProfile
}

/*
1 ステップ分の無遮蔽受光面積を計算する。

    Args:
        grid: 占有ボリューム
        mask: 日影マスク（呼び出し時点で全 True であること）
        profile: 日影プロファイル

    Returns:
        行 1..z-1 の無遮蔽パネルセル数

    Notes:
        vertical_index <= 0 の場合は影がパネルに届かないため、マスクに
        触れずに事前計算済みの no_shading_area をそのまま返す。
        マスクを書き換えた場合は読み取り後に必ずリセットして返す。
*/
func run_timestep(grid *PanelFieldGrid, mask *ShadingMask, profile ShadowProfile) int {
	if profile.vertical_index <= 0 {
		return grid.get_no_shading_area()
	}

	mask.apply_shadow(grid, profile)
	area := mask.unshaded_area(grid)
	mask.reset()

	return area
}

/*
日影プロファイル列の事前条件を検査する。

    Notes:
        水平変位が負のプロファイルはループに入る前に拒否する
        （ループ内での回復処理は行わない）。
*/
func validate_records(records []TimestepRecord) error {
	for n, rec := range records {
		if rec.profile.horizontal_displacement < 0 {
			return fmt.Errorf("%w: ステップ %d の水平変位が負 (%d)", ErrConfiguration, n, rec.profile.horizontal_displacement)
		}
		if math.IsNaN(rec.insolation) || rec.insolation <= 0 {
			return fmt.Errorf("%w: ステップ %d の日射量が正でない (%f)", ErrConfiguration, n, rec.insolation)
		}
	}
	return nil
}

/*
順序付きステップ列全体の日影シミュレーションを実行し、日影による損失率を返す。

    Args:
        grid: 占有ボリューム
        records: ステップ列（正の日射量のみ、上流で選別済み）
        n_worker: ワーカー数（1 以下で逐次実行）
        on_step: ステップごとのコールバック（進捗・記録用、nil 可）

    Returns:
        日影損失率 = 1 - Σ[(無遮蔽面積 + 最前行面積) / 全面積 × 日射量] / Σ日射量

    Notes:
        各ステップは互いに独立であり、並列実行時はワーカーごとに専用の
        マスクを確保する。ステップ列を連続した塊に分割し、塊ごとの部分和を
        塊の順に合計するため、ワーカー数が同じであれば結果は再現される。
        n_worker > 1 の場合、on_step は複数ゴルーチンから呼ばれるため
        スレッドセーフでなければならない（ステップ番号は互いに重複しない）。
*/
func RunShadingSimulation(grid *PanelFieldGrid, records []TimestepRecord, n_worker int, on_step func(n int, unshaded_area int)) (float64, error) {
	if err := validate_records(records); err != nil {
		return 0.0, err
	}
	if len(records) == 0 {
		return 0.0, nil
	}

	if n_worker < 1 {
		n_worker = 1
	}
	if n_worker > len(records) {
		n_worker = len(records)
	}

	// 塊ごとの部分和（日射量合計・計算受光量）
	total_partials := make([]float64, n_worker)
	calc_partials := make([]float64, n_worker)

	// ステップ列の連続分割
	chunk := (len(records) + n_worker - 1) / n_worker

	var worker_err error
	var err_once sync.Once
	var wg sync.WaitGroup
	for i := 0; i < n_worker; i++ {
		begin := i * chunk
		end := begin + chunk
		if end > len(records) {
			end = len(records)
		}
		if begin >= end {
			continue
		}

		wg.Add(1)
		go func(i, begin, end int) {
			defer wg.Done()

			// ワーカー専用のマスク
			mask, err := NewShadingMask(grid.h_panel, grid.cols, grid.z_row-1)
			if err != nil {
				err_once.Do(func() { worker_err = err })
				return
			}

			var total, calc float64
			for n := begin; n < end; n++ {
				rec := records[n]
				area := run_timestep(grid, mask, rec.profile)

				total += rec.insolation
				calc += float64(area+grid.get_front_row_area()) / float64(grid.get_total_area()) * rec.insolation

				if on_step != nil {
					on_step(n, area)
				}
			}
			total_partials[i] = total
			calc_partials[i] = calc
		}(i, begin, end)
	}
	wg.Wait()

	if worker_err != nil {
		return 0.0, worker_err
	}

	total_insolation := floats.Sum(total_partials)
	calculated_insolation := floats.Sum(calc_partials)

	return 1.0 - calculated_insolation/total_insolation, nil
}
