package main

import (
	"fmt"
	"math"
	"os"
	"strconv"

	"github.com/gocarina/gocsv"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// 地面の日射反射率
const rho_gnd = 0.1

// アレイ設置地点の年間気象条件
type Weather struct {
	i_dn_ns  []float64 // 法線面直達日射量, W/m2, [n]
	i_sky_ns []float64 // 水平面天空日射量, W/m2, [n]
	h_sun_ns []float64 // 太陽高度, rad, [n]
	a_sun_ns []float64 // 太陽方位角, rad, [n]
	itv      Interval  // 時間間隔
}

/*
Args
	i_dn_ns 法線面直達日射量, W/m2, [n]
	i_sky_ns 水平面天空日射量, W/m2, [n]
	h_sun_ns 太陽高度, rad, [n]
	a_sun_ns 太陽方位角, rad, [n]
	itv 時間間隔
*/
func NewWeather(i_dn_ns, i_sky_ns, h_sun_ns, a_sun_ns []float64, itv Interval) *Weather {
	return &Weather{
		i_dn_ns:  i_dn_ns,
		i_sky_ns: i_sky_ns,
		h_sun_ns: h_sun_ns,
		a_sun_ns: a_sun_ns,
		itv:      itv,
	}
}

// データの数を取得する。
func (self *Weather) number_of_data() int {
	return self.itv.get_annual_number()
}

// 気象データCSVの1行
type IrradianceDataRow struct {
	Latitude                string  `csv:"latitude"`
	Longitude               string  `csv:"longitude"`
	NormalDirectIrradiance  float64 `csv:"normal_direct_irradiance"`
	HorizontalSkyIrradiance float64 `csv:"horizontal_sky_irradiance"`
}

/*
気象データを読み込む。

Args
	file_path 気象データのファイルのパス
	itv Interval 列挙体

Returns
	Weather クラス

Notes
	1時間間隔・8760行のCSVを前提とし、指定された時間間隔に補間する。
	緯度・経度は1行目から読み取り、太陽位置の計算に用いる。
*/
func make_weather_from_csv(file_path string, itv Interval) (*Weather, error) {

	if _, err := os.Stat(file_path); os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: 気象データファイル %s が存在しない", ErrConfiguration, file_path)
	}

	file, err := os.Open(file_path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var pp []*IrradianceDataRow
	if err := gocsv.UnmarshalFile(file, &pp); err != nil {
		return nil, err
	}

	if len(pp) != 8760 {
		return nil, fmt.Errorf("%w: 気象データは8760行でなければならない (%d行)", ErrConfiguration, len(pp))
	}

	latitude, err := strconv.ParseFloat(pp[0].Latitude, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: 緯度の読み取りに失敗: %s", ErrConfiguration, err)
	}
	longitude, err := strconv.ParseFloat(pp[0].Longitude, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: 経度の読み取りに失敗: %s", ErrConfiguration, err)
	}

	phi_loc := math.Pi / 180.0 * latitude
	lambda_loc := math.Pi / 180.0 * longitude

	// 太陽位置
	//   (1) ステップ n における太陽高度, rad, [n]
	//   (2) ステップ n における太陽方位角, rad, [n]
	h_sun_ns, a_sun_ns := calc_solar_position(phi_loc, lambda_loc, 135.0*math.Pi/180.0, itv)

	f := func(getc func(row *IrradianceDataRow) float64) []float64 {
		ret := make([]float64, len(pp))
		for i := range pp {
			ret[i] = getc(pp[i])
		}
		return ret
	}

	// 法線面直達日射量, W/m2
	i_dn_ns := _interpolate(
		f(func(row *IrradianceDataRow) float64 {
			return row.NormalDirectIrradiance
		}),
		itv,
		false,
	)

	// 水平面天空日射量, W/m2
	i_sky_ns := _interpolate(
		f(func(row *IrradianceDataRow) float64 {
			return row.HorizontalSkyIrradiance
		}),
		itv,
		false,
	)

	return NewWeather(i_dn_ns, i_sky_ns, h_sun_ns, a_sun_ns, itv), nil
}

/*
パネル受光面に入射する日射量（直達 + 天空 + 地盤反射）を計算する。

Args
	beta パネル傾斜角, rad
	alpha_array アレイ方位角, rad

Returns
	ステップnにおけるパネル面日射量, W/m2, [n]

Notes
	直達成分は入射角の余弦を乗じる。余弦が負（太陽がパネル裏面）の場合は 0 とする。
	天空成分は形態係数 (1 + cos β) / 2 を乗じる。
	地盤反射成分は水平面全天日射量に反射率と (1 - f_sky) を乗じる。
*/
func (self *Weather) get_i_srf_ns(beta float64, alpha_array float64) *mat.VecDense {

	n := len(self.i_dn_ns)

	// 天空に対する傾斜面の形態係数
	f_sky := (1.0 + math.Cos(beta)) / 2.0

	// 地面に対する傾斜面の形態係数
	f_gnd := 1.0 - f_sky

	cos_beta := math.Cos(beta)
	sin_beta := math.Sin(beta)

	// 直達成分, W/m2
	i_srf_dn_ns := make([]float64, n)
	// 水平面全天日射量, W/m2
	i_hrz_ns := make([]float64, n)
	for i := 0; i < n; i++ {
		h_sun := self.h_sun_ns[i]
		cos_h_sun := math.Cos(h_sun)
		sin_h_sun := math.Sin(h_sun)

		// 入射角の余弦
		// 太陽が天頂にあり方位角が定義されない（NaN の）場合は場合分けする。
		var cos_phi float64
		if cos_h_sun == 0.0 || math.IsNaN(self.a_sun_ns[i]) {
			cos_phi = math.Max(sin_h_sun*cos_beta, 0.0)
		} else {
			a_sun := self.a_sun_ns[i]
			cos_phi = math.Max(sin_h_sun*cos_beta+
				cos_h_sun*math.Sin(a_sun)*sin_beta*math.Sin(alpha_array)+
				cos_h_sun*math.Cos(a_sun)*sin_beta*math.Cos(alpha_array), 0.0)
		}

		i_srf_dn_ns[i] = self.i_dn_ns[i] * cos_phi
		i_hrz_ns[i] = math.Max(sin_h_sun, 0.0)*self.i_dn_ns[i] + self.i_sky_ns[i]
	}

	// 天空成分, W/m2
	i_srf_sky_ns := make([]float64, n)
	floats.ScaleTo(i_srf_sky_ns, f_sky, self.i_sky_ns)

	// 地盤反射成分, W/m2
	i_srf_ref_ns := make([]float64, n)
	floats.ScaleTo(i_srf_ref_ns, f_gnd*rho_gnd, i_hrz_ns)

	i_srf_ns := make([]float64, n)
	copy(i_srf_ns, i_srf_dn_ns)
	floats.Add(i_srf_ns, i_srf_sky_ns)
	floats.Add(i_srf_ns, i_srf_ref_ns)

	return mat.NewVecDense(n, i_srf_ns)
}

/*
シミュレーションループに渡すステップ列を構築する。

Args
	geometry アレイの固定幾何

Returns
	タプル
		(1) 正の日射量を持つステップの列（元の時刻順）
		(2) 幾何が特異で影なし扱いとしたステップ数

Notes
	日射量が正でないステップ（夜間等）はここで除外する。
	幾何が特異なステップは明示的に「影なし」のプロファイルに置き換えて数える
	（NaN を下流に伝播させない）。
*/
func (self *Weather) build_timestep_records(geometry *ShadingGeometry) ([]TimestepRecord, int) {

	i_srf_ns := self.get_i_srf_ns(geometry.beta, geometry.alpha_array)

	records := make([]TimestepRecord, 0, i_srf_ns.Len())
	n_degenerate := 0

	for i := 0; i < i_srf_ns.Len(); i++ {
		insolation := i_srf_ns.AtVec(i)
		if insolation <= 0.0 {
			continue
		}

		profile, err := geometry.resolve_shadow_profile(self.h_sun_ns[i], self.a_sun_ns[i])
		if err != nil {
			profile = no_shade_profile()
			n_degenerate++
		}

		records = append(records, TimestepRecord{insolation: insolation, profile: profile})
	}

	return records, n_degenerate
}

/*
1時間ごとの8760データを指定された間隔のデータに補間する。
"1h" 1時間間隔の場合、 n = 8760
"30m" 30分間隔の場合、 n = 8760 * 2 = 17520
"15m" 15分間隔の場合、 n = 8760 * 4 = 35040

Args
	weather_data 1時間ごとの気象データ [8760]
	interval 生成するデータの時間間隔
	rolling rolling するか否か。データが1時始まりの場合は最終行の 12/31 2400 のデータを 1/1 000 に持ってくるため、この値は True にすること。

Returns
	指定する時間間隔に補間された気象データ [n]
*/
func _interpolate(weather_data []float64, interval Interval, rolling bool) []float64 {
	if interval == IntervalH1 {

		if rolling {
			return roll(weather_data, 1)
		} else {
			return weather_data
		}
	} else {
		// 補間比率の係数
		alpha := map[Interval][]float64{
			IntervalM30: {1.0, 0.5},
			IntervalM15: {1.0, 0.75, 0.5, 0.25},
		}[interval]

		// 補間元データ1, 補間元データ2
		var data1, data2 []float64
		if rolling {
			data1 = roll(weather_data, 1) // 0時=24時のため、1回分前のデータを参照
			data2 = weather_data
		} else {
			data1 = weather_data
			data2 = roll(weather_data, -1)
		}

		ndata := len(data1)                  // 補間元のデータ数
		nalpha := len(alpha)                 // 補間比率の係数の数
		n := len(data1) * nalpha             // 補間後のデータ数
		data_interp_1d := make([]float64, n) // 補間後のデータ
		off := 0
		for i := 0; i < ndata; i++ {
			for j := 0; j < nalpha; j++ {
				data_interp_1d[off] = alpha[j]*data1[i] + (1.0-alpha[j])*data2[i]
				off++
			}
		}

		return data_interp_1d
	}
}

func roll(slice []float64, shift int) []float64 {
	length := len(slice)
	shift %= length
	if shift < 0 {
		shift += length
	}
	result := make([]float64, 0, length)
	result = append(result, slice[length-shift:]...)
	result = append(result, slice[:length-shift]...)
	return result
}
