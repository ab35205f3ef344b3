package models

import "time"

// Snapshot is the full state of the three collections at one instant.
// Items and trainers are in creation order, transactions in ledger
// (checkout) order.
type Snapshot struct {
	Items        []Item        `json:"items"`
	Trainers     []Trainer     `json:"trainers"`
	Transactions []Transaction `json:"transactions"`
}

// Clone deep-copies the snapshot so callers may mutate the result.
func (s Snapshot) Clone() Snapshot {
	out := Snapshot{
		Items:        append([]Item(nil), s.Items...),
		Trainers:     append([]Trainer(nil), s.Trainers...),
		Transactions: make([]Transaction, len(s.Transactions)),
	}
	for i, t := range s.Transactions {
		if t.ReturnTime != nil {
			rt := *t.ReturnTime
			t.ReturnTime = &rt
		}
		out.Transactions[i] = t
	}
	return out
}

func (s Snapshot) Empty() bool {
	return len(s.Items) == 0 && len(s.Trainers) == 0 && len(s.Transactions) == 0
}

// SeedTrainer is a pre-provisioned trainer with a plain-text password that is
// hashed when seeded.
type SeedTrainer struct {
	ID       string
	Name     string
	Password string
}

var SeedTrainers = []SeedTrainer{
	{ID: "t1", Name: "علي الشمري", Password: "13950"},
	{ID: "t2", Name: "رياض الغامدي", Password: "6727"},
	{ID: "t3", Name: "عبدالله الزهراني", Password: "20582"},
	{ID: "t4", Name: "خالد قدسي", Password: "3839"},
	{ID: "t5", Name: "سالم السفياني", Password: "10596"},
	{ID: "t6", Name: "احمد العصيمي", Password: "18487"},
	{ID: "t7", Name: "عبدالله غندورة", Password: "20557"},
	{ID: "t8", Name: "عمرو مؤذن", Password: "18460"},
	{ID: "t9", Name: "تركي الشمري", Password: "10595"},
	{ID: "t10", Name: "وليد السواط", Password: "20463"},
	{ID: "t11", Name: "عادل القثامي", Password: "9079"},
	{ID: "t12", Name: "احمد المالكي", Password: "9232"},
	{ID: "t13", Name: "عبدالله الغامدي", Password: "6522"},
	{ID: "t14", Name: "ايمن الانصاري", Password: "20594"},
	{ID: "t15", Name: "محمد الغامدي", Password: "10591"},
}

var SeedItems = []Item{
	{ID: "i1", Name: "جهاز فحص كمبيوتر (Scanner)", Category: "تشخيص", Status: ItemAvailable},
	{ID: "i2", Name: "طقم مفاتيح متري كامل", Category: "عدد يدوية", Status: ItemAvailable},
	{ID: "i3", Name: "رافعة هيدروليكية 3 طن", Category: "معدات رفع", Status: ItemAvailable},
	{ID: "i4", Name: "دريل هواء (Air Impact)", Category: "معدات هوائية", Status: ItemAvailable},
	{ID: "i5", Name: "جهاز قياس ضغط المحرك", Category: "قياس", Status: ItemAvailable},
	{ID: "i6", Name: "عربة عدة متحركة", Category: "تخزين", Status: ItemAvailable},
	{ID: "i7", Name: "مفك عزم (Torque Wrench)", Category: "عدد دقيقة", Status: ItemAvailable},
	{ID: "i8", Name: "جهاز شحن فريون", Category: "تكييف", Status: ItemAvailable},
	{ID: "i9", Name: "ملتيميتر رقمي", Category: "كهرباء", Status: ItemAvailable},
	{ID: "i10", Name: "زرادية كبس", Category: "عدد يدوية", Status: ItemAvailable},
}

// seedEpoch orders seeded rows ahead of anything created later.
var seedEpoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// SeedCreatedAt gives the i-th seeded row a stable creation time.
func SeedCreatedAt(i int) time.Time { return seedEpoch.Add(time.Duration(i) * time.Millisecond) }
