package main

import (
	"os"

	"github.com/gocarina/gocsv"
)

// ステップごとの計算結果CSVの1行
type ShadingResultRow struct {
	Step                   int     `csv:"step"`
	Insolation             float64 `csv:"insolation"`
	VerticalIndex          int     `csv:"vertical_index"`
	HorizontalDisplacement int     `csv:"horizontal_displacement"`
	Direction              string  `csv:"direction"`
	UnshadedArea           int     `csv:"unshaded_area"`
}

/*
ステップごとの計算結果の記録。

    Notes:
        行はステップ番号で事前確保し、record はステップ番号の位置に書き込むだけなので
        並列実行時も（ステップ番号が重複しない限り）ロックなしで安全に使える。
*/
type ResultRecorder struct {
	rows []*ShadingResultRow
}

/*
Args
	n_step 記録するステップ数
*/
func NewResultRecorder(n_step int) *ResultRecorder {
	return &ResultRecorder{rows: make([]*ShadingResultRow, n_step)}
}

// ステップ n の結果を記録する。
func (self *ResultRecorder) record(n int, rec TimestepRecord, unshaded_area int) {
	self.rows[n] = &ShadingResultRow{
		Step:                   n,
		Insolation:             rec.insolation,
		VerticalIndex:          rec.profile.vertical_index,
		HorizontalDisplacement: rec.profile.horizontal_displacement,
		Direction:              rec.profile.direction.String(),
		UnshadedArea:           unshaded_area,
	}
}

// 計算結果をCSVファイルに保存する。
func (self *ResultRecorder) save(file_path string) error {
	file, err := os.Create(file_path)
	if err != nil {
		return err
	}
	defer file.Close()

	return gocsv.MarshalFile(&self.rows, file)
}
