package main

import (
	"errors"
	"fmt"
	"math"
)

// 特異な太陽位置（天頂またはパネル面と平行な入射）による幾何計算不能
var ErrDegenerateGeometry = errors.New("degenerate solar geometry")

// 日影の水平方向のずらし方向
type ShadowDirection int

const (
	NoShift   ShadowDirection = iota // 太陽がアレイ方位の正面（ずらしなし）
	WestShift                        // 西向きのずらし
	EastShift                        // 東向きのずらし
)

func (d ShadowDirection) String() string {
	switch d {
	case NoShift:
		return "none"
	case WestShift:
		return "west"
	case EastShift:
		return "east"
	default:
		panic("invalid shadow direction")
	}
}

/*
ステップ n における前行からの日影の掛かり方。

    Notes:
        vertical_index は「パネル上端から数えて何セル分が影になるか」を表す整数で、
        0 以下（影がパネルに届かない）, (0, H) の範囲（部分影）, H 以上（全高影）の
        3 つの領域をとる。
        horizontal_displacement は非負であり、cols を超えることがある。
*/
type ShadowProfile struct {
	vertical_index          int
	horizontal_displacement int
	direction               ShadowDirection
}

// アレイ配置から定まる固定幾何定数
type ShadingGeometry struct {
	h_panel     int     // パネル高さ（単位セル数）
	row_spacing float64 // 行間隔, 単位セル
	beta        float64 // パネル傾斜角, rad
	alpha_array float64 // アレイ方位角, rad
	theta_0     float64 // 基底角 atan2(H sin β, row_spacing), rad
	theta_a     float64 // 幾何のみで定まる角 π - θ0 - β, rad
	b_len       float64 // 固定辺長 sqrt(row_spacing^2 + (H sin β)^2), 単位セル
	l_len       float64 // 対応点間距離 row_spacing + H cos β, 単位セル
}

/*
固定幾何定数を事前計算する。

    Args:
        h_panel: パネル高さ, 単位セル数
        row_spacing: 行間隔, 単位セル
        beta: パネル傾斜角, rad
        alpha_array: アレイ方位角, rad

    Returns:
        ShadingGeometry クラス
*/
func NewShadingGeometry(h_panel int, row_spacing float64, beta float64, alpha_array float64) (*ShadingGeometry, error) {
	if h_panel <= 0 {
		return nil, fmt.Errorf("%w: パネル高さは正の値でなければならない (%d)", ErrConfiguration, h_panel)
	}
	if row_spacing <= 0 {
		return nil, fmt.Errorf("%w: 行間隔は正の値でなければならない (%f)", ErrConfiguration, row_spacing)
	}
	if beta <= 0 || beta > math.Pi/2 {
		return nil, fmt.Errorf("%w: 傾斜角は (0, π/2] の範囲でなければならない (%f)", ErrConfiguration, beta)
	}

	h := float64(h_panel)
	theta_0 := math.Atan2(h*math.Sin(beta), row_spacing)

	return &ShadingGeometry{
		h_panel:     h_panel,
		row_spacing: row_spacing,
		beta:        beta,
		alpha_array: alpha_array,
		theta_0:     theta_0,
		theta_a:     math.Pi - theta_0 - beta,
		b_len:       math.Sqrt(row_spacing*row_spacing + h*math.Sin(beta)*h*math.Sin(beta)),
		l_len:       row_spacing + h*math.Cos(beta),
	}, nil
}

/*
ステップ n の太陽位置から日影プロファイルを求める。

    Args:
        h_sun: 太陽高度, rad
        a_sun: 太陽方位角, rad

    Returns:
        ShadowProfile

    Notes:
        影の三角形に正弦定理を適用する。
            θb = h_sun + β
            a = b・sin(θa) / sin(θb)
            鉛直影長 = a・sin(h_sun) / sin(β)
            vertical_index = round(H - 鉛直影長)
        水平方向は相対方位角 a_rel = a_sun - alpha_array により
            horizontal_displacement = round(|L・tan(a_rel)|)
            direction = sign(sin(a_rel))
        とする。
        sin(θb) == 0 または cos(h_sun) == 0 の場合は分母が特異となるため
        ErrDegenerateGeometry を返す（NaN を伝播させない）。
*/
func (self *ShadingGeometry) resolve_shadow_profile(h_sun float64, a_sun float64) (ShadowProfile, error) {
	if math.IsNaN(h_sun) || math.IsNaN(a_sun) {
		return ShadowProfile{}, fmt.Errorf("%w: 太陽位置が未定義 (h_sun=%f, a_sun=%f)", ErrDegenerateGeometry, h_sun, a_sun)
	}

	// 太陽が天頂にある場合は方位角が定義されず tan も特異となる。
	if math.Cos(h_sun) == 0.0 {
		return ShadowProfile{}, fmt.Errorf("%w: 太陽が天頂にある (h_sun=%f)", ErrDegenerateGeometry, h_sun)
	}

	theta_b := h_sun + self.beta
	sin_theta_b := math.Sin(theta_b)
	if sin_theta_b == 0.0 {
		return ShadowProfile{}, fmt.Errorf("%w: sin(θb) == 0 (h_sun=%f)", ErrDegenerateGeometry, h_sun)
	}

	// 正弦定理による影のレイ長
	a := self.b_len * math.Sin(self.theta_a) / sin_theta_b

	// 鉛直影長（パネル面に沿った受光側の長さ）
	vertical_shadow_length := a * math.Sin(h_sun) / math.Sin(self.beta)

	vertical_index := int(math.Round(float64(self.h_panel) - vertical_shadow_length))

	// 相対方位角
	a_rel := a_sun - self.alpha_array

	horizontal_displacement := int(math.Round(math.Abs(self.l_len * math.Tan(a_rel))))

	var direction ShadowDirection
	sin_a_rel := math.Sin(a_rel)
	if sin_a_rel < 0.0 {
		direction = WestShift
	} else if sin_a_rel > 0.0 {
		direction = EastShift
	} else {
		// 太陽がアレイ方位の正面にある縮退ケース
		direction = NoShift
	}

	return ShadowProfile{
		vertical_index:          vertical_index,
		horizontal_displacement: horizontal_displacement,
		direction:               direction,
	}, nil
}

// 影が全く掛からないことを表すプロファイル（縮退ステップの明示的な扱いに用いる）
func no_shade_profile() ShadowProfile {
	return ShadowProfile{vertical_index: 0, horizontal_displacement: 0, direction: NoShift}
}
