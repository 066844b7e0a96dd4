package service

import (
	"math"

	"artiefy_backend/internal/model"
)

// Round2 保留两位小数，四舍五入
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// ParameterResult 单个评分参数的汇总
type ParameterResult struct {
	ParametroID uint    `json:"parametroId"`
	Name        string  `json:"name"`
	Porcentaje  int     `json:"porcentaje"`
	Grade       float64 `json:"grade"`
	Activities  int     `json:"activities"`
	Graded      int     `json:"graded"`
}

// CourseGrade 课程最终成绩
type CourseGrade struct {
	FinalGrade float64           `json:"finalGrade"`
	Completed  bool              `json:"isCompleted"`
	Parameters []ParameterResult `json:"parameters"`
}

// ComputeCourseGrade 按参数权重聚合课程成绩
//
// 参数成绩是其下活动成绩按活动 porcentaje 的加权平均，活动权重全为 0 时取算术平均，
// 未评分的活动按 0 计。课程成绩是有活动的参数按其 porcentaje 的加权平均；
// 总权重为 0 时成绩为 0。grades 以 activityID 为键。
func ComputeCourseGrade(params []model.Parametro, activities []model.Activity, grades map[uint]float64) CourseGrade {
	byParam := make(map[uint][]model.Activity, len(params))
	for _, a := range activities {
		if a.ParametroID != nil {
			byParam[*a.ParametroID] = append(byParam[*a.ParametroID], a)
		}
	}

	result := CourseGrade{Completed: true, Parameters: make([]ParameterResult, 0, len(params))}
	var weighted, totalWeight float64
	parametrised := 0

	for _, p := range params {
		acts := byParam[p.ID]
		pr := ParameterResult{ParametroID: p.ID, Name: p.Name, Porcentaje: p.Porcentaje, Activities: len(acts)}

		var sum, wsum float64
		for _, a := range acts {
			g, ok := grades[a.ID]
			if ok {
				pr.Graded++
			}
			w := float64(a.Porcentaje)
			sum += g * w
			wsum += w
		}
		switch {
		case len(acts) == 0:
			pr.Grade = 0
		case wsum > 0:
			pr.Grade = sum / wsum
		default:
			var plain float64
			for _, a := range acts {
				plain += grades[a.ID]
			}
			pr.Grade = plain / float64(len(acts))
		}

		parametrised += len(acts)
		if pr.Graded < len(acts) {
			result.Completed = false
		}

		// 没有活动的参数不参与加权
		if len(acts) > 0 {
			weighted += pr.Grade * float64(p.Porcentaje)
			totalWeight += float64(p.Porcentaje)
		}
		pr.Grade = Round2(pr.Grade)
		result.Parameters = append(result.Parameters, pr)
	}

	if parametrised == 0 {
		result.Completed = false
	}
	if totalWeight > 0 {
		result.FinalGrade = Round2(weighted / totalWeight)
	}
	return result
}

// CheckWeightBudget 读-校验式的预算检查：existing 为当前课程的全部参数，
// replacedID 非 0 时表示更新该参数。单独使用存在并发竞态，落库须走条件语句。
func CheckWeightBudget(existing []model.Parametro, replacedID uint, newWeight, max int) bool {
	if newWeight < 0 || newWeight > max {
		return false
	}
	total := 0
	for _, p := range existing {
		if p.ID == replacedID {
			continue
		}
		total += p.Porcentaje
	}
	return total+newWeight <= max
}
