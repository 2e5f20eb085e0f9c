package main

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 2行・高さ10・全幅10・全面パネル（間隔なし）の基準ケース
func full_grid(t *testing.T) *PanelFieldGrid {
	t.Helper()
	grid, err := NewPanelFieldGrid([][]bool{{true}, {true}}, 10, 10, 0)
	require.NoError(t, err)
	return grid
}

func test_mask(t *testing.T, grid *PanelFieldGrid) *ShadingMask {
	t.Helper()
	mask, err := NewShadingMask(grid.h_panel, grid.cols, grid.z_row-1)
	require.NoError(t, err)
	return mask
}

func TestNewShadingMask_Errors(t *testing.T) {
	_, err := NewShadingMask(0, 10, 1)
	assert.ErrorIs(t, err, ErrBufferSize)

	_, err = NewShadingMask(10, 0, 1)
	assert.ErrorIs(t, err, ErrBufferSize)

	_, err = NewShadingMask(10, 10, -1)
	assert.ErrorIs(t, err, ErrBufferSize)

	// 上限セル数超過
	_, err = NewShadingMask(1<<20, 1<<20, 4)
	assert.ErrorIs(t, err, ErrBufferSize)
}

func TestShadingMask_ResetDiscipline(t *testing.T) {
	grid := full_grid(t)
	mask := test_mask(t, grid)

	assert.True(t, mask.is_all_unshaded())

	mask.apply_shadow(grid, ShadowProfile{vertical_index: 5, direction: NoShift})
	assert.False(t, mask.is_all_unshaded())

	mask.reset()
	assert.True(t, mask.is_all_unshaded())

	// run_timestep は使用後に必ずマスクをリセットして返す。
	_ = run_timestep(grid, mask, ShadowProfile{vertical_index: 7, horizontal_displacement: 3, direction: WestShift})
	assert.True(t, mask.is_all_unshaded())
}

func TestRunTimestep_NoShadeRegime(t *testing.T) {
	grid := full_grid(t)
	mask := test_mask(t, grid)

	// vertical_index <= 0 の場合は無遮蔽面積そのもの。
	assert.Equal(t, grid.get_no_shading_area(), run_timestep(grid, mask, ShadowProfile{vertical_index: 0, direction: NoShift}))
	assert.Equal(t, grid.get_no_shading_area(), run_timestep(grid, mask, ShadowProfile{vertical_index: -3, direction: WestShift}))

	// マスクには触れない。
	assert.True(t, mask.is_all_unshaded())
}

func TestRunTimestep_PartialRegime(t *testing.T) {
	grid := full_grid(t)
	mask := test_mask(t, grid)

	// 高さ10のうち上側5セルが影 → 10×10 - 50 = 50
	area := run_timestep(grid, mask, ShadowProfile{vertical_index: 5, horizontal_displacement: 0, direction: NoShift})
	assert.Equal(t, 50, area)
}

func TestRunTimestep_FullHeightRegime(t *testing.T) {
	grid := full_grid(t)
	mask := test_mask(t, grid)

	// 全高影・ずらしなし → 行1は完全に影。
	area := run_timestep(grid, mask, ShadowProfile{vertical_index: 10, horizontal_displacement: 0, direction: NoShift})
	assert.Equal(t, 0, area)

	// vertical_index が H を超えても全高影と同じ。
	area = run_timestep(grid, mask, ShadowProfile{vertical_index: 25, horizontal_displacement: 0, direction: NoShift})
	assert.Equal(t, 0, area)

	// vertical_index == H の部分影は全高影と一致する。
	a1 := run_timestep(grid, mask, ShadowProfile{vertical_index: 10, horizontal_displacement: 2, direction: WestShift})
	a2 := run_timestep(grid, mask, ShadowProfile{vertical_index: 99, horizontal_displacement: 2, direction: WestShift})
	assert.Equal(t, a1, a2)
}

func TestRunTimestep_LateralShiftClipping(t *testing.T) {
	grid := full_grid(t)
	mask := test_mask(t, grid)

	// 全面パネルの前行を西に2ずらすと右端2列が影から外れる。
	area := run_timestep(grid, mask, ShadowProfile{vertical_index: 10, horizontal_displacement: 2, direction: WestShift})
	assert.Equal(t, 20, area)

	// 東向きも同様に左端2列が影から外れる。
	area = run_timestep(grid, mask, ShadowProfile{vertical_index: 10, horizontal_displacement: 2, direction: EastShift})
	assert.Equal(t, 20, area)

	// 変位が全幅以上の場合は影が描かれない。
	area = run_timestep(grid, mask, ShadowProfile{vertical_index: 10, horizontal_displacement: 10, direction: WestShift})
	assert.Equal(t, grid.get_no_shading_area(), area)

	area = run_timestep(grid, mask, ShadowProfile{vertical_index: 10, horizontal_displacement: 15, direction: EastShift})
	assert.Equal(t, grid.get_no_shading_area(), area)
}

func TestRunTimestep_UnshadedAreaBounds(t *testing.T) {
	grid, err := NewPanelFieldGrid([][]bool{
		{true, false, true},
		{false, true, true},
		{true, true, false},
	}, 4, 3, 1)
	require.NoError(t, err)
	mask := test_mask(t, grid)

	profiles := []ShadowProfile{
		{vertical_index: -1, direction: NoShift},
		{vertical_index: 2, horizontal_displacement: 0, direction: NoShift},
		{vertical_index: 2, horizontal_displacement: 3, direction: WestShift},
		{vertical_index: 4, horizontal_displacement: 1, direction: EastShift},
		{vertical_index: 9, horizontal_displacement: 7, direction: WestShift},
	}
	for _, p := range profiles {
		area := run_timestep(grid, mask, p)
		assert.GreaterOrEqual(t, area, 0)
		assert.LessOrEqual(t, area, grid.get_no_shading_area())
	}
}

func TestRunTimestep_EastWestSymmetry(t *testing.T) {
	// 左右対称（回文）の配置: パターン TT FF TT（間隔0, 中央モジュール欠落）
	presence := [][]bool{
		{true, false, true},
		{true, false, true},
	}
	grid, err := NewPanelFieldGrid(presence, 4, 2, 0)
	require.NoError(t, err)
	mask := test_mask(t, grid)

	for d := 0; d <= 6; d++ {
		west := run_timestep(grid, mask, ShadowProfile{vertical_index: 4, horizontal_displacement: d, direction: WestShift})
		east := run_timestep(grid, mask, ShadowProfile{vertical_index: 4, horizontal_displacement: d, direction: EastShift})
		assert.Equal(t, west, east, "displacement %d", d)
	}

	// 部分影でも対称性は保たれる。
	for d := 0; d <= 6; d++ {
		west := run_timestep(grid, mask, ShadowProfile{vertical_index: 2, horizontal_displacement: d, direction: WestShift})
		east := run_timestep(grid, mask, ShadowProfile{vertical_index: 2, horizontal_displacement: d, direction: EastShift})
		assert.Equal(t, west, east, "displacement %d", d)
	}
}

func TestRunTimestep_DisplacementMonotonicity(t *testing.T) {
	// 前行は全面パネル、受影行は中央モジュールのみ（両端から2セル内側）。
	// 影の転送元が途切れない範囲では、変位を増やしても無遮蔽面積は増えない。
	presence := [][]bool{
		{true, true, true},
		{false, true, false},
	}
	grid, err := NewPanelFieldGrid(presence, 4, 2, 0)
	require.NoError(t, err)
	mask := test_mask(t, grid)

	for _, dir := range []ShadowDirection{WestShift, EastShift} {
		prev := grid.get_no_shading_area()
		for d := 0; d <= 2; d++ {
			area := run_timestep(grid, mask, ShadowProfile{vertical_index: 4, horizontal_displacement: d, direction: dir})
			assert.LessOrEqual(t, area, prev)
			prev = area
		}
	}
}

func TestRunShadingSimulation_ConcreteScenario(t *testing.T) {
	grid := full_grid(t)

	records := []TimestepRecord{
		{insolation: 100.0, profile: ShadowProfile{vertical_index: 5, horizontal_displacement: 0, direction: NoShift}},
	}

	// 無遮蔽 50 + 最前行 100 → 受光比 150/200, 損失率 0.25
	loss, err := RunShadingSimulation(grid, records, 1, nil)
	require.NoError(t, err)
	assert.Equal(t, 0.25, loss)
}

func TestRunShadingSimulation_FullShade(t *testing.T) {
	grid := full_grid(t)

	records := []TimestepRecord{
		{insolation: 42.5, profile: ShadowProfile{vertical_index: 10, horizontal_displacement: 0, direction: NoShift}},
	}

	// 行1が完全に影 → 受光比 100/200, 損失率 0.5
	loss, err := RunShadingSimulation(grid, records, 1, nil)
	require.NoError(t, err)
	assert.Equal(t, 0.5, loss)
}

func TestRunShadingSimulation_NoShadeMeansZeroLoss(t *testing.T) {
	grid := full_grid(t)

	// 全ステップで影なし → 損失率は日射量の値によらず厳密に 0。
	records := []TimestepRecord{
		{insolation: 1.0, profile: ShadowProfile{vertical_index: 0, direction: NoShift}},
		{insolation: 321.5, profile: ShadowProfile{vertical_index: -7, direction: WestShift}},
		{insolation: 0.001, profile: ShadowProfile{vertical_index: -1, direction: EastShift}},
	}

	loss, err := RunShadingSimulation(grid, records, 1, nil)
	require.NoError(t, err)
	assert.Equal(t, 0.0, loss)
}

func TestRunShadingSimulation_EmptyRecords(t *testing.T) {
	grid := full_grid(t)

	loss, err := RunShadingSimulation(grid, nil, 1, nil)
	require.NoError(t, err)
	assert.Equal(t, 0.0, loss)
}

func TestRunShadingSimulation_RejectsMalformedRecords(t *testing.T) {
	grid := full_grid(t)

	_, err := RunShadingSimulation(grid, []TimestepRecord{
		{insolation: 10.0, profile: ShadowProfile{vertical_index: 5, horizontal_displacement: -1, direction: WestShift}},
	}, 1, nil)
	assert.ErrorIs(t, err, ErrConfiguration)

	_, err = RunShadingSimulation(grid, []TimestepRecord{
		{insolation: 0.0, profile: ShadowProfile{vertical_index: 5, direction: NoShift}},
	}, 1, nil)
	assert.ErrorIs(t, err, ErrConfiguration)

	_, err = RunShadingSimulation(grid, []TimestepRecord{
		{insolation: math.NaN(), profile: ShadowProfile{vertical_index: 5, direction: NoShift}},
	}, 1, nil)
	assert.ErrorIs(t, err, ErrConfiguration)
}

func synthetic_records(n int) []TimestepRecord {
	records := make([]TimestepRecord, n)
	for i := 0; i < n; i++ {
		var dir ShadowDirection
		switch i % 3 {
		case 0:
			dir = NoShift
		case 1:
			dir = WestShift
		case 2:
			dir = EastShift
		}
		records[i] = TimestepRecord{
			insolation: 1.0 + float64(i%97)*3.5,
			profile: ShadowProfile{
				vertical_index:          i%15 - 2,
				horizontal_displacement: i % 12,
				direction:               dir,
			},
		}
	}
	return records
}

func TestRunShadingSimulation_Deterministic(t *testing.T) {
	grid := full_grid(t)
	records := synthetic_records(200)

	// 同一入力に対する再実行はビット単位で一致する（状態の持ち越しがない）。
	loss1, err := RunShadingSimulation(grid, records, 1, nil)
	require.NoError(t, err)
	loss2, err := RunShadingSimulation(grid, records, 1, nil)
	require.NoError(t, err)
	assert.Equal(t, loss1, loss2)

	// 並列実行もワーカー数が同じであれば再現される。
	par1, err := RunShadingSimulation(grid, records, 4, nil)
	require.NoError(t, err)
	par2, err := RunShadingSimulation(grid, records, 4, nil)
	require.NoError(t, err)
	assert.Equal(t, par1, par2)

	// 逐次と並列は加算順序のみが異なる。
	assert.InDelta(t, loss1, par1, 1e-12)
}

func TestRunShadingSimulation_OnStepCallback(t *testing.T) {
	grid := full_grid(t)
	records := synthetic_records(50)

	recorder := NewResultRecorder(len(records))
	n_called := 0
	_, err := RunShadingSimulation(grid, records, 1, func(n int, unshaded_area int) {
		recorder.record(n, records[n], unshaded_area)
		n_called++
	})
	require.NoError(t, err)

	assert.Equal(t, len(records), n_called)
	for n, row := range recorder.rows {
		require.NotNil(t, row)
		assert.Equal(t, n, row.Step)
		assert.LessOrEqual(t, row.UnshadedArea, grid.get_no_shading_area())
	}
}

func TestRunShadingSimulation_ParallelCoversAllSteps(t *testing.T) {
	grid := full_grid(t)
	records := synthetic_records(101)

	recorder := NewResultRecorder(len(records))
	_, err := RunShadingSimulation(grid, records, 8, func(n int, unshaded_area int) {
		recorder.record(n, records[n], unshaded_area)
	})
	require.NoError(t, err)

	// ワーカーごとのステップ番号は重複しないため、全行が埋まる。
	for n, row := range recorder.rows {
		require.NotNil(t, row, "step %d", n)
	}
}
