package main

import "math"

/*
ステップnにおける太陽位置（太陽高度・太陽方位角）を計算する。

    Args:
        phi_loc: 緯度, rad
        lambda_loc: 経度, rad
        lambda_loc_mer: 標準子午線における経度, rad
        interval: 生成するデータの時間間隔

    Returns:
        タプル
            (1) ステップnにおける太陽高度, rad, [n]
            (2) ステップnにおける太陽方位角, rad, [n]

    Notes:
        近点通過日・平均近点離角・真近点離角・均時差・赤緯・時角を経由する
        標準的な太陽位置算定式による。年は 1989 年（1968 年との年差 21）で固定する。
        太陽高度は負の値もとり得る（太陽が沈んでいる場合）。
        太陽が天頂にあるステップでは方位角が定義できないため NaN とする。
*/
func calc_solar_position(phi_loc float64, lambda_loc float64, lambda_loc_mer float64, interval Interval) ([]float64, []float64) {

	// 1時間を分割するステップ数
	n_hour := interval.get_n_hour()

	// インターバル時間, h
	dt := interval.get_time()

	// 1968年との年差
	n := 1989 - 1968

	// 平均軌道上の近日点通過日（暦表時による1968年1月1日正午基準の日差）, d
	d_0 := 3.71 + 0.2596*float64(n) - float64(int((n+3.0)/4.0))

	// 近点年（近日点基準の公転周期日数）
	const d_ay = 365.2596

	// 北半球の冬至の日赤緯, rad
	const delta_0 = -23.4393 * math.Pi / 180.0

	n_step := 365 * 24 * n_hour
	h_sun_ns := make([]float64, n_step)
	a_sun_ns := make([]float64, n_step)

	sin_phi_loc := math.Sin(phi_loc)
	cos_phi_loc := math.Cos(phi_loc)

	off := 0
	for dd := 0; dd < 365; dd++ {

		// 年通算日（1/1を1とする）, d
		d := float64(dd + 1)

		// 平均近点離角, rad
		m := 2.0 * math.Pi * (d - d_0) / d_ay

		// 近日点と冬至点の角度, rad
		epsilon := (12.3901 + 0.0172*(float64(n)+m/(2.0*math.Pi))) * math.Pi / 180.0

		// 真近点離角, rad
		v := m + (1.914*math.Sin(m)+0.02*math.Sin(2.0*m))*math.Pi/180.0

		// 均時差, rad
		e_t := (m - v) - math.Atan(0.043*math.Sin(2.0*(v+epsilon))/(1.0-0.043*math.Cos(2.0*(v+epsilon))))

		// 赤緯, rad
		delta := math.Asin(math.Cos(v+epsilon) * math.Sin(delta_0))
		sin_delta := math.Sin(delta)
		cos_delta := math.Cos(delta)

		for s := 0; s < 24*n_hour; s++ {

			// 標準時, h
			t_m := float64(s) * dt

			// 時角, rad
			omega := ((t_m-12.0)*15.0)*math.Pi/180.0 + (lambda_loc - lambda_loc_mer) + e_t

			// 太陽高度, rad
			h_sun := math.Asin(sin_phi_loc*sin_delta + cos_phi_loc*cos_delta*math.Cos(omega))
			h_sun_ns[off] = h_sun

			if h_sun == math.Pi/2 {
				// 太陽が天頂にある場合は方位角は「定義なし = NaN」とする。
				a_sun_ns[off] = math.NaN()
			} else {
				// 太陽方位角の正弦・余弦
				sin_a_sun := cos_delta * math.Sin(omega) / math.Cos(h_sun)
				cos_a_sun := (math.Sin(h_sun)*sin_phi_loc - sin_delta) / (math.Cos(h_sun) * cos_phi_loc)

				// atan2 により象限を区別して方位角を求める。
				a_sun_ns[off] = math.Atan2(sin_a_sun, cos_a_sun)
			}

			off++
		}
	}

	return h_sun_ns, a_sun_ns
}
