package model

// MaxCapacityPerSlot は1日1枠あたりの最大人数です
const MaxCapacityPerSlot = 30

// TimeSlots は予約可能な時間枠です（ランチ12:00-15:30、ディナー19:00-23:00、30分刻み）
var TimeSlots = []string{
	"12:00", "12:30", "13:00", "13:30", "14:00", "14:30", "15:00", "15:30",
	"19:00", "19:30", "20:00", "20:30", "21:00", "21:30", "22:00", "22:30", "23:00",
}

var slotIndex = func() map[string]struct{} {
	m := make(map[string]struct{}, len(TimeSlots))
	for _, s := range TimeSlots {
		m[s] = struct{}{}
	}
	return m
}()

// IsValidSlot は時間枠が予約可能な枠かを判定します
func IsValidSlot(slot string) bool {
	_, ok := slotIndex[slot]
	return ok
}

// HasCapacity は既存の人数に追加しても収容人数以内かを判定します
func HasCapacity(booked, guests int) bool {
	return booked+guests <= MaxCapacityPerSlot
}

// AvailableSlots は時間枠ごとの確定済み人数から、指定人数を受け入れられる枠を返します
// 返却順はTimeSlotsの順序を保持します
func AvailableSlots(booked map[string]int, guests int) []string {
	available := make([]string, 0, len(TimeSlots))
	for _, slot := range TimeSlots {
		if HasCapacity(booked[slot], guests) {
			available = append(available, slot)
		}
	}
	return available
}
