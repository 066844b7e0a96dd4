package service

import (
	"sync"
	"testing"

	"artiefy_backend/internal/model"

	"github.com/stretchr/testify/assert"
)

func uptr(v uint) *uint { return &v }

func param(id uint, weight int) model.Parametro {
	return model.Parametro{ID: id, Name: "p", Porcentaje: weight}
}

func act(id, paramID uint, weight int) model.Activity {
	a := model.Activity{ParametroID: uptr(paramID), Porcentaje: weight}
	a.ID = id
	return a
}

func TestComputeCourseGradeWeighted(t *testing.T) {
	params := []model.Parametro{param(1, 40), param(2, 60)}
	activities := []model.Activity{act(10, 1, 0), act(11, 1, 0), act(20, 2, 0)}
	grades := map[uint]float64{10: 4, 11: 5, 20: 3}

	got := ComputeCourseGrade(params, activities, grades)

	// p1 = 4.5, p2 = 3 -> (4.5*40 + 3*60) / 100 = 3.6
	assert.InDelta(t, 3.6, got.FinalGrade, 1e-9)
	assert.True(t, got.Completed)
	assert.Equal(t, 4.5, got.Parameters[0].Grade)
}

func TestComputeCourseGradeActivityWeights(t *testing.T) {
	params := []model.Parametro{param(1, 100)}
	activities := []model.Activity{act(10, 1, 75), act(11, 1, 25)}
	grades := map[uint]float64{10: 4, 11: 2}

	got := ComputeCourseGrade(params, activities, grades)

	assert.InDelta(t, 3.5, got.FinalGrade, 1e-9)
}

func TestComputeCourseGradeNoGrades(t *testing.T) {
	got := ComputeCourseGrade(nil, nil, nil)
	assert.Equal(t, 0.0, got.FinalGrade)
	assert.False(t, got.Completed)

	got = ComputeCourseGrade([]model.Parametro{param(1, 0)}, []model.Activity{act(10, 1, 0)}, map[uint]float64{10: 5})
	assert.Equal(t, 0.0, got.FinalGrade, "zero total weight yields zero")
}

func TestComputeCourseGradeUngradedCountsAsZero(t *testing.T) {
	params := []model.Parametro{param(1, 100)}
	activities := []model.Activity{act(10, 1, 0), act(11, 1, 0)}

	got := ComputeCourseGrade(params, activities, map[uint]float64{10: 5})

	assert.InDelta(t, 2.5, got.FinalGrade, 1e-9)
	assert.False(t, got.Completed)
	assert.Equal(t, 1, got.Parameters[0].Graded)
}

func TestComputeCourseGradeSkipsParametersWithoutActivities(t *testing.T) {
	params := []model.Parametro{param(1, 50), param(2, 50)}
	activities := []model.Activity{act(10, 1, 0)}

	got := ComputeCourseGrade(params, activities, map[uint]float64{10: 5})

	assert.Equal(t, 5.0, got.FinalGrade)
	assert.True(t, got.Completed)
	assert.Equal(t, 0, got.Parameters[1].Activities)
}

func TestComputeCourseGradeRounding(t *testing.T) {
	params := []model.Parametro{param(1, 100)}
	activities := []model.Activity{act(10, 1, 0), act(11, 1, 0), act(12, 1, 0)}

	got := ComputeCourseGrade(params, activities, map[uint]float64{10: 4, 11: 4, 12: 3})

	assert.Equal(t, 3.67, got.FinalGrade)
	assert.Equal(t, 3.14, Round2(3.14159))
}

func TestCheckWeightBudget(t *testing.T) {
	existing := []model.Parametro{param(1, 50), param(2, 30)}

	assert.True(t, CheckWeightBudget(existing, 0, 20, 100))
	assert.False(t, CheckWeightBudget(existing, 0, 21, 100))
	assert.True(t, CheckWeightBudget(existing, 1, 70, 100), "updating replaces the old weight")
	assert.False(t, CheckWeightBudget(existing, 0, -1, 100))
	assert.False(t, CheckWeightBudget([]model.Parametro{param(1, 50)}, 0, 60, 100))
}

// 演示仅靠读-校验-写无法守住预算：两个请求读到同一快照后都通过校验
func TestCheckWeightBudgetRaceWithoutAtomicWrite(t *testing.T) {
	snapshot := []model.Parametro{param(1, 50)}
	var mu sync.Mutex
	stored := append([]model.Parametro(nil), snapshot...)

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(id uint) {
			defer wg.Done()
			if CheckWeightBudget(snapshot, 0, 30, 100) {
				mu.Lock()
				stored = append(stored, param(id, 30))
				mu.Unlock()
			}
		}(uint(10 + i))
	}
	wg.Wait()

	total := 0
	for _, p := range stored {
		total += p.Porcentaje
	}
	assert.Equal(t, 110, total)
}
