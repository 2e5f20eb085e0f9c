package main

// 計算の時間間隔
type Interval string

const (
	IntervalH1  Interval = "1h"
	IntervalM30 Interval = "30m"
	IntervalM15 Interval = "15m"
)

/*
1時間を分割するステップ数を求める。

        Returns:
            1時間を分割するステップ数

        Notes:
            1時間: 1
            30分: 2
            15分: 4
*/
func (i Interval) get_n_hour() int {
	switch i {
	case IntervalH1:
		return 1
	case IntervalM30:
		return 2
	case IntervalM15:
		return 4
	default:
		panic("invalid interval")
	}
}

/*
1時間を分割するステップに応じてインターバル時間を取得する。

        Returns:
            インターバル時間, h
*/
func (i Interval) get_time() float64 {
	switch i {
	case IntervalH1:
		return 1.0
	case IntervalM30:
		return 0.5
	case IntervalM15:
		return 0.25
	default:
		panic("invalid interval")
	}
}

/*
対応するインターバルにおいて1年間は何ステップに対応するのか、その数を取得する。

Returns:
	1年間のステップ数
*/
func (i Interval) get_annual_number() int {
	return 8760 * i.get_n_hour()
}
