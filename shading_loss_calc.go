package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"

	"gopkg.in/cheggaaa/pb.v1"
)

type Config struct {
	FieldLayoutPath string
	WeatherFilePath string
	OutputDataDir   string
	NWorker         int
	IsResultSaved   bool
}

/*
アレイ配置JSONファイルの辞書を読み込む。

    Args:
        rd: アレイ配置の辞書

    Returns:
        タプル
            (1) ShadingGeometry クラス
            (2) PanelFieldGrid クラス
            (3) Interval 列挙体
*/
func parse_field_layout(rd map[string]interface{}) (*ShadingGeometry, *PanelFieldGrid, Interval, error) {

	panel, ok := rd["panel"].(map[string]interface{})
	if !ok {
		return nil, nil, "", fmt.Errorf("%w: panel の定義がない", ErrConfiguration)
	}
	array, ok := rd["array"].(map[string]interface{})
	if !ok {
		return nil, nil, "", fmt.Errorf("%w: array の定義がない", ErrConfiguration)
	}

	h_panel, err := _get_int(panel, "height")
	if err != nil {
		return nil, nil, "", err
	}
	w_panel, err := _get_int(panel, "width")
	if err != nil {
		return nil, nil, "", err
	}
	panel_spacing, err := _get_int(panel, "spacing")
	if err != nil {
		return nil, nil, "", err
	}

	row_spacing, err := _get_float(array, "row_spacing")
	if err != nil {
		return nil, nil, "", err
	}
	tilt, err := _get_float(array, "tilt")
	if err != nil {
		return nil, nil, "", err
	}
	azimuth, err := _get_float(array, "azimuth")
	if err != nil {
		return nil, nil, "", err
	}

	// パネル配置行列（行×モジュール）
	sa, ok := array["solar_array"].([]interface{})
	if !ok {
		return nil, nil, "", fmt.Errorf("%w: solar_array の定義がない", ErrConfiguration)
	}
	presence := make([][]bool, len(sa))
	for r, row_if := range sa {
		row, ok := row_if.([]interface{})
		if !ok {
			return nil, nil, "", fmt.Errorf("%w: solar_array の行 %d が配列でない", ErrConfiguration, r)
		}
		presence[r] = make([]bool, len(row))
		for m, v := range row {
			b, ok := v.(bool)
			if !ok {
				return nil, nil, "", fmt.Errorf("%w: solar_array[%d][%d] が真偽値でない", ErrConfiguration, r, m)
			}
			presence[r][m] = b
		}
	}

	itv := IntervalH1
	if v, ok := rd["interval"].(string); ok {
		switch Interval(v) {
		case IntervalH1, IntervalM30, IntervalM15:
			itv = Interval(v)
		default:
			return nil, nil, "", fmt.Errorf("%w: interval は 1h/30m/15m のいずれかでなければならない (%s)", ErrConfiguration, v)
		}
	}

	geometry, err := NewShadingGeometry(h_panel, row_spacing, tilt*math.Pi/180.0, azimuth*math.Pi/180.0)
	if err != nil {
		return nil, nil, "", err
	}

	grid, err := NewPanelFieldGrid(presence, h_panel, w_panel, panel_spacing)
	if err != nil {
		return nil, nil, "", err
	}

	return geometry, grid, itv, nil
}

func _get_float(d map[string]interface{}, key string) (float64, error) {
	v, ok := d[key].(float64)
	if !ok {
		return 0.0, fmt.Errorf("%w: %s の定義がないか数値でない", ErrConfiguration, key)
	}
	return v, nil
}

func _get_int(d map[string]interface{}, key string) (int, error) {
	v, err := _get_float(d, key)
	if err != nil {
		return 0, err
	}
	if v != math.Trunc(v) {
		return 0, fmt.Errorf("%w: %s は整数でなければならない (%f)", ErrConfiguration, key, v)
	}
	return int(v), nil
}

/*
日影損失計算処理の実行

    Args:
        cfg: 実行条件
            FieldLayoutPath: アレイ配置JSONファイルへのパス
            WeatherFilePath: 気象データのファイルパス
            OutputDataDir: 出力フォルダへのパス
            NWorker: ワーカー数
            IsResultSaved: ステップごとの計算結果を出力するか否か
*/
func run(cfg Config) error {

	// ---- 事前準備 ----

	if _, err := os.Stat(cfg.OutputDataDir); os.IsNotExist(err) {
		os.Mkdir(cfg.OutputDataDir, 0755)
	}
	if _, err := os.Stat(cfg.OutputDataDir); os.IsNotExist(err) {
		return fmt.Errorf("`%s` is not a directory", cfg.OutputDataDir)
	}

	log.Printf("アレイ配置JSONファイルの読み込み開始")
	bytes, err := os.ReadFile(cfg.FieldLayoutPath)
	if err != nil {
		return err
	}
	var rd map[string]interface{}
	if err := json.Unmarshal(bytes, &rd); err != nil {
		return err
	}

	geometry, grid, itv, err := parse_field_layout(rd)
	if err != nil {
		return err
	}
	log.Printf("アレイ: %d 行 × 全幅 %d, パネル高さ %d", grid.number_of_rows(), grid.cols, grid.h_panel)

	log.Printf("Load weather data from `%s`", cfg.WeatherFilePath)
	w, err := make_weather_from_csv(cfg.WeatherFilePath, itv)
	if err != nil {
		return err
	}

	// ---- 計算 ----

	log.Printf("ステップ列の構築開始")
	records, n_degenerate := w.build_timestep_records(geometry)
	log.Printf("日射量が正のステップ数: %d / %d", len(records), w.number_of_data())
	if n_degenerate > 0 {
		log.Printf("幾何が特異のため影なし扱いとしたステップ数: %d", n_degenerate)
	}

	var recorder *ResultRecorder
	if cfg.IsResultSaved {
		recorder = NewResultRecorder(len(records))
	}

	log.Printf("日影計算開始 (ワーカー数 %d)", cfg.NWorker)
	bar := pb.StartNew(len(records))
	on_step := func(n int, unshaded_area int) {
		if recorder != nil {
			recorder.record(n, records[n], unshaded_area)
		}
		bar.Increment()
	}

	shading_loss, err := RunShadingSimulation(grid, records, cfg.NWorker, on_step)
	if err != nil {
		return err
	}
	bar.Finish()

	log.Printf("日影損失率: %.6f", shading_loss)
	fmt.Printf("%.6f\n", shading_loss)

	// ---- 計算結果ファイルの保存 ----

	if recorder != nil {
		result_path := filepath.Join(cfg.OutputDataDir, "result_detail.csv")
		log.Printf("Save result data to `%s`", result_path)
		if err := recorder.save(result_path); err != nil {
			return err
		}
	}

	return nil
}

func main() {
	var field_layout string
	flag.StringVar(&field_layout, "input", "", "アレイ配置を定義するJSONファイル")

	var weather_file string
	flag.StringVar(&weather_file, "w", "", "気象データのCSVファイル")

	var output_data_dir string
	flag.StringVar(&output_data_dir, "o", ".", "出力フォルダ")

	var n_worker int
	flag.IntVar(&n_worker, "n", 1, "ワーカー数")

	var is_result_saved bool
	flag.BoolVar(&is_result_saved, "r", false, "ステップごとの計算結果を出力するか否か")

	flag.Parse()

	if field_layout == "" || weather_file == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg := Config{
		FieldLayoutPath: field_layout,
		WeatherFilePath: weather_file,
		OutputDataDir:   output_data_dir,
		NWorker:         n_worker,
		IsResultSaved:   is_result_saved,
	}

	if err := run(cfg); err != nil {
		log.Fatal(err)
	}
}
